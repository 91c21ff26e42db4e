package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/hrygo/voicecal/plugin/ai"
	"github.com/hrygo/voicecal/server/timezone"
)

const (
	// DefaultStartHour and DefaultEndHour bound the window used when a day is
	// named without a time of day.
	DefaultStartHour = 9
	DefaultEndHour   = 18
)

// Prompt is the instruction payload for a single extraction call.
type Prompt struct {
	System string
	User   string
}

// Messages returns the role-tagged turns sent to the completion service.
func (p Prompt) Messages() []ai.Message {
	return []ai.Message{
		ai.SystemPrompt(p.System),
		ai.UserMessage(p.User),
	}
}

// PromptBuilder renders the date-aware extraction instructions.
type PromptBuilder struct {
	location  *time.Location
	startHour int
	endHour   int
}

// NewPromptBuilder creates a builder. Hours outside 0..23, or an end hour not after
// the start hour, fall back to the 09:00-18:00 window.
func NewPromptBuilder(loc *time.Location, startHour, endHour int) *PromptBuilder {
	if loc == nil {
		loc = timezone.UTC
	}
	if startHour < 0 || startHour > 23 || endHour < 0 || endHour > 23 || endHour <= startHour {
		startHour, endHour = DefaultStartHour, DefaultEndHour
	}
	return &PromptBuilder{location: loc, startHour: startHour, endHour: endHour}
}

// Build renders the prompt for text anchored at reference.
func (b *PromptBuilder) Build(text string, reference time.Time) Prompt {
	ref := reference.In(b.location)
	today := timezone.FormatDate(ref, b.location)
	tomorrow := timezone.FormatDate(timezone.AddDays(ref, 1, b.location), b.location)
	dayAfter := timezone.FormatDate(timezone.AddDays(ref, 2, b.location), b.location)
	threeDaysLater := timezone.FormatDate(timezone.AddDays(ref, 3, b.location), b.location)
	window := fmt.Sprintf("%02d:00", b.startHour)
	windowEnd := fmt.Sprintf("%02d:00", b.endHour)

	var sb strings.Builder
	sb.WriteString("당신은 일정을 분석하는 AI 어시스턴트입니다.\n")
	sb.WriteString("다음 카테고리 중 하나를 선택하여 일정을 분류해주세요:\n")
	for _, c := range Categories {
		fmt.Fprintf(&sb, "- %s (%s): %s\n", c, c.Gloss(), categoryHints[c])
	}

	fmt.Fprintf(&sb, "\n현재 날짜: %s (%d년 %d월, %s)\n", today, ref.Year(), int(ref.Month()), weekdayNames[ref.Weekday()])
	fmt.Fprintf(&sb, "시간대: %s\n", b.location.String())

	sb.WriteString(`
응답은 다음 JSON 형식으로만 해주세요. 다른 문장은 덧붙이지 마세요:
{
  "title": "일정 제목",
  "startTime": "YYYY-MM-DD HH:mm",
  "endTime": "YYYY-MM-DD HH:mm",
  "category": "카테고리 코드",
  "isAllDay": false,
  "description": "추가 설명 (없으면 빈 문자열)"
}
`)

	fmt.Fprintf(&sb, `
날짜 처리 규칙:
1. 날짜가 언급되지 않은 경우 %[1]s 사용
2. "오늘"은 %[1]s 사용
3. "내일"은 %[2]s 사용
4. "모레"는 %[3]s 사용
5. "글피"는 %[4]s 사용
6. 월 없이 "N일"만 말한 경우 %[5]d년 %[6]d월 N일로 해석
7. "X일부터 Y일까지"는 여러 날에 걸친 일정으로, startTime은 X일 %[7]s, endTime은 Y일 %[8]s
`, today, tomorrow, dayAfter, threeDaysLater, ref.Year(), int(ref.Month()), window, windowEnd)

	fmt.Fprintf(&sb, `
시간 처리 규칙:
1. "오전/아침"은 00:00-11:59
2. "오후"는 12:00-23:59
3. "저녁"은 18:00-23:59
4. "새벽"은 00:00-05:59
5. 시작 시간만 있고 종료 시간이 없으면 endTime은 시작 시간 1시간 후
6. 날짜는 있지만 시간이 없으면 startTime %[1]s, endTime %[2]s
7. 날짜와 시간이 모두 없으면 해당 날짜의 하루종일 일정으로 설정 ("isAllDay": true)
8. 제목에서 날짜와 시간 표현은 제거

예시:
- "오늘 오후 2시 회의" → {"title": "회의", "startTime": "%[3]s 14:00", "endTime": "%[3]s 15:00", "category": "work", "isAllDay": false}
- "23일부터 26일까지 교수님과 식사" → {"title": "교수님과 식사", "startTime": "%[4]d-%02[5]d-23 %[1]s", "endTime": "%[4]d-%02[5]d-26 %[2]s", "category": "event", "isAllDay": false}

일정 제목이나 카테고리를 알 수 없으면 JSON 대신 필요한 정보를 묻는 한국어 문장으로 답해주세요.
`, window, windowEnd, today, ref.Year(), int(ref.Month()))

	return Prompt{
		System: sb.String(),
		User:   strings.TrimSpace(text),
	}
}

var categoryHints = map[Category]string{
	CategorySchool:    "학교, 학원, 공부, 시험, 과제 관련",
	CategoryHousework: "청소, 빨래, 요리, 정리 등 가사 관련",
	CategoryWork:      "회의, 프로젝트, 업무 관련",
	CategorySelfDev:   "독서, 운동, 취미, 강의 등 개인 성장 관련",
	CategoryFamily:    "가족 모임, 가족 행사, 가족 관련",
	CategoryHealth:    "병원, 건강검진, 운동, 식단 관련",
	CategoryEvent:     "모임, 파티, 축하, 기념일 등 행사 관련",
	CategoryGoal:      "목표 달성, 계획, 리뷰 관련",
}

var weekdayNames = [...]string{"일요일", "월요일", "화요일", "수요일", "목요일", "금요일", "토요일"}
