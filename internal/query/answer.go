package query

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/yuin/goldmark"

	"graph-rag/internal/domain"
)

const (
	keyFindings    = 3
	findingRunes   = 150
	paperIDPrefix  = 8
	answerTemplate = `## Analysis of: '{{.Question}}'

### Research Insights
Based on analysis of {{.PassageCount}} relevant passages from {{.PaperCount}} research papers:

### Key Findings
{{range .Findings}}- {{.}}...
{{end}}
### Papers Analyzed
{{join .Papers ", "}}

### Summary
The research discusses {{.Topic}} with focus on technical approaches and methodologies found across multiple studies in the analyzed papers.
`
)

var answerTmpl = template.Must(template.New("answer").Funcs(template.FuncMap{
	"join": strings.Join,
}).Parse(answerTemplate))

// Answer is the synthesized reply in markdown and rendered HTML.
type Answer struct {
	Markdown string
	HTML     string
}

type answerView struct {
	Question     string
	Topic        string
	PassageCount int
	PaperCount   int
	Findings     []string
	Papers       []string
}

// Synthesize renders a templated answer from the retrieval context.
func Synthesize(rc *domain.RetrievalContext) (Answer, error) {
	ids := rc.PaperIDs()
	view := answerView{
		Question:     rc.Question,
		Topic:        strings.ToLower(rc.Question),
		PassageCount: len(rc.Passages),
		PaperCount:   len(ids),
	}
	for i, p := range rc.Passages {
		if i == keyFindings {
			break
		}
		view.Findings = append(view.Findings, truncate(strings.Join(strings.Fields(p.Text), " "), findingRunes))
	}
	for _, id := range ids {
		view.Papers = append(view.Papers, truncate(id, paperIDPrefix)+"...")
	}

	var md bytes.Buffer
	if err := answerTmpl.Execute(&md, view); err != nil {
		return Answer{}, fmt.Errorf("could not render answer: %w", err)
	}
	var html bytes.Buffer
	if err := goldmark.Convert(md.Bytes(), &html); err != nil {
		return Answer{}, fmt.Errorf("could not convert answer to html: %w", err)
	}
	return Answer{Markdown: md.String(), HTML: html.String()}, nil
}

func truncate(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
