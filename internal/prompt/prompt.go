// Package prompt builds the instruction sent to the generation service.
package prompt

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/jnst/lifetime-analyzer/internal/model"
)

// ClosingLine ends every report.
const ClosingLine = "“AI LifeTime Analyzer — turning your date of birth into your life’s magical timeline! 🌟”"

// Section headings in the order the report must contain them.
const (
	SectionAgeSummary  = "### 🎉 Age Summary"
	SectionBirthday    = "### 📅 Next Birthday Countdown"
	SectionZodiac      = "### 💫 Zodiac & Lucky Details"
	SectionHistory     = "### 🏛️ Historical Context"
	SectionEconomy     = "### 📈 Economy & Growth Comparison"
	SectionGlobal      = "### 🌍 Global Changes"
	SectionName        = "### 💖 Name Analysis"
	SectionPredictions = "### ✨ Astrology & Life Prediction"
	SectionFunStats    = "### 🔢 Fun Lifetime Stats"
	SectionClosing     = "## ✨ Closing Note"
)

var sections = []string{
	SectionAgeSummary,
	SectionBirthday,
	SectionZodiac,
	SectionHistory,
	SectionEconomy,
	SectionGlobal,
	SectionName,
	SectionPredictions,
	SectionFunStats,
	SectionClosing,
}

// Sections returns the report headings in order.
func Sections() []string {
	out := make([]string, len(sections))
	copy(out, sections)

	return out
}

type headings struct {
	Age, Birthday, Zodiac, History, Economy, Global, Name, Predictions, FunStats, Closing string
}

type templateData struct {
	Name        string
	Country     string
	BirthDate   string
	BirthYear   int
	CurrentDate string
	H           headings
	ClosingLine string
}

var reportTemplate = template.Must(template.New("report").Parse(reportText))

// Synthesize renders the report prompt for a validated input and its derived facts.
// The output depends only on its arguments.
func Synthesize(in model.UserInput, facts model.Facts) (string, error) {
	in = in.Normalize()

	data := templateData{
		Name:        in.Name,
		Country:     in.Country,
		BirthDate:   facts.BirthDateISO,
		BirthYear:   facts.BirthYear,
		CurrentDate: facts.CurrentDateISO,
		H: headings{
			Age:         SectionAgeSummary,
			Birthday:    SectionBirthday,
			Zodiac:      SectionZodiac,
			History:     SectionHistory,
			Economy:     SectionEconomy,
			Global:      SectionGlobal,
			Name:        SectionName,
			Predictions: SectionPredictions,
			FunStats:    SectionFunStats,
			Closing:     SectionClosing,
		},
		ClosingLine: ClosingLine,
	}

	var b strings.Builder
	if err := reportTemplate.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}

	return b.String(), nil
}

const reportText = `You are an advanced, friendly AI assistant called "AI LifeTime Analyzer". Your persona is a mix of an astrologer, a historian, and a wise friend. Take the user's Name, Date of Birth, and Country and return a detailed, beautifully formatted, human-like report in a storytelling style, written in Markdown.

**VERY IMPORTANT:** All calculations must be based on the current date provided below. Do not guess the current date and do not substitute any other date for it. Treat the birth year below as fact.

**User Details:**
- Name: {{.Name}}
- Date of Birth: {{.BirthDate}}
- Birth Year: {{.BirthYear}}
- Country: {{.Country}}
- **Current Date for Calculation:** {{.CurrentDate}}

**Generate the report with exactly the following sections, in this order, using these headings:**

---

## 🧍 PERSONAL AGE REPORT

{{.H.Age}}
- Using the Current Date for Calculation ({{.CurrentDate}}), state the exact current age in years, months, and days.
- Then state the total time since birth in days, hours, and seconds.

{{.H.Birthday}}
- Using the Current Date for Calculation ({{.CurrentDate}}), state the countdown to the next birthday in months, days, and hours.

{{.H.Zodiac}}
- State the Western zodiac sign.
- State the Vedic zodiac sign for the date of birth.
- Give a lucky number, a lucky color, and a ruling planet.

---

## 🌍 {{.Country}} SINCE {{.BirthYear}}

{{.H.History}}
- Name the head of government and other key leaders of {{.Country}} in {{.BirthYear}}.
- Summarize major historical events, government changes, and important laws in {{.Country}} since {{.BirthYear}}.
- Highlight developments in infrastructure, technology, education, and healthcare.
- List 2-3 major positive changes and 2-3 major negative changes since {{.BirthYear}}.

{{.H.Economy}}
- Compare the GDP and per capita income of {{.Country}} in {{.BirthYear}} with the latest available figures. Present the comparison clearly.

---

## 🌐 THE WORLD SINCE {{.BirthYear}}

{{.H.Global}}
- List important world events since {{.BirthYear}} in science, technology, conflicts, space exploration, public health, and artificial intelligence.
- Describe briefly how the world economy, technology, and environment have changed.
- Name at least 3 major inventions or technological revolutions since {{.BirthYear}}.

---

## 💫 NAME ANALYSIS

{{.H.Name}}
- Explain the meaning of the name "{{.Name}}" in English and in Hindi.
- Describe personality traits associated with the name, using numerology of its letters or its first letter.
- Write a short, original 2-4 line verse (a shayari in Hindi, Roman script) about the name and personality.

---

## 🔮 FOR FUN

{{.H.Predictions}}
- Predict an approximate age range for marriage.
- Describe the likely personality of a future partner.
- Suggest career fields suited to the energy of the date of birth.
- Give the age range most likely to be the peak years for success.
- End with one motivational line tailored to this life journey.

---

## 📊 FUN FACTS & STATS

{{.H.FunStats}}
- Using the Current Date for Calculation ({{.CurrentDate}}), estimate the number of heartbeats since birth at an average of 75 beats per minute.
- State how many times the Earth has orbited the Sun since birth.
- State the total months, weeks, days, hours, minutes, and seconds lived.
- Share one "Did You Know?" fact from {{.BirthYear}}.

---

{{.H.Closing}}
End with exactly this line:
{{.ClosingLine}}
`
