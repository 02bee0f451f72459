// Package prompts assembles the instruction templates sent upstream for each
// proxy endpoint.
package prompts

import (
	"fmt"
	"strings"

	"github.com/aclio/aclio/llm"
	"github.com/aclio/aclio/models"
	"github.com/aclio/aclio/utils"
)

// Token budgets per endpoint.
const (
	StepsMaxTokens     = 2000
	QuestionsMaxTokens = 600
	ExpandMaxTokens    = 1500
	DoItMaxTokens      = 2000
	ChatMaxTokens      = 800
)

const jsonOnly = "Respond with valid JSON only. Do not wrap it in markdown and do not add commentary."

const coachSystem = "You are Aclio, an encouraging and practical goal coach. " +
	"You turn vague ambitions into concrete, realistic actions."

// StepsInput carries the generate-steps request fields.
type StepsInput struct {
	Goal              string
	Profile           *models.UserProfile
	Location          string
	AdditionalContext string
	Categories        []string
}

// GenerateSteps asks for a categorized plan of 5 to 8 steps.
func GenerateSteps(in StepsInput) llm.Request {
	var b strings.Builder
	fmt.Fprintf(&b, "Create an action plan for this goal: %q.\n", utils.Sanitize(in.Goal))
	writeProfile(&b, in.Profile)
	if loc := utils.Sanitize(in.Location); loc != "" {
		fmt.Fprintf(&b, "The user is located in %s. Prefer locally available options.\n", loc)
	}
	if extra := utils.Sanitize(in.AdditionalContext); extra != "" {
		fmt.Fprintf(&b, "Additional context from the user:\n%s\n", extra)
	}
	if cats := cleanList(in.Categories); len(cats) > 0 {
		fmt.Fprintf(&b, "Pick the category from: %s.\n", strings.Join(cats, ", "))
	}
	b.WriteString(`
Return between 5 and 8 steps in the order they should be done.
Each step needs a short title, a one or two sentence description and a realistic duration such as "1 week".
When a step involves visiting a physical place, add a "mapSearch" query for it.

JSON shape:
{"category": "string", "steps": [{"id": 1, "title": "string", "description": "string", "duration": "string", "mapSearch": "string (optional)"}]}
`)
	return llm.Prompt(coachSystem+" "+jsonOnly, b.String(), StepsMaxTokens)
}

// GenerateQuestions asks for three clarifying questions about the goal.
func GenerateQuestions(goal string) llm.Request {
	user := fmt.Sprintf(`The user wants to achieve: %q.
Ask exactly 3 short clarifying questions that would help tailor a plan (current level, available time, budget, constraints).
Give each question a placeholder showing an example answer.

JSON shape:
{"questions": [{"id": 1, "question": "string", "placeholder": "string"}]}
`, utils.Sanitize(goal))
	return llm.Prompt(coachSystem+" "+jsonOnly, user, QuestionsMaxTokens)
}

// ExpandStep asks for a detailed guide with resources for one step.
func ExpandStep(goalName string, step models.Step) llm.Request {
	var b strings.Builder
	fmt.Fprintf(&b, "Goal: %q.\n", utils.Sanitize(goalName))
	writeStep(&b, step)
	b.WriteString(`
Expand this step into a detailed how-to guide.
List 2 to 4 useful resources; "type" is one of "article", "video", "app", "course", "book", "place", "tool" and "cost" is "free" or a short price hint.
Add 3 practical tips and one web search query for learning more.

JSON shape:
{"detailedGuide": "string", "resources": [{"name": "string", "description": "string", "type": "string", "url": "string", "cost": "string"}], "tips": ["string"], "searchQuery": "string"}
`)
	return llm.Prompt(coachSystem+" "+jsonOnly, b.String(), ExpandMaxTokens)
}

// DoItForMe asks the model to produce the step's deliverable itself.
func DoItForMe(goalName string, step models.Step, profile *models.UserProfile) llm.Request {
	var b strings.Builder
	fmt.Fprintf(&b, "Goal: %q.\n", utils.Sanitize(goalName))
	writeStep(&b, step)
	writeProfile(&b, profile)
	b.WriteString(`
Complete this step on the user's behalf as far as text allows: write the draft, the list, the schedule or the research summary they would otherwise produce.
Use markdown inside the result string for structure.

JSON shape:
{"result": "string"}
`)
	return llm.Prompt(coachSystem+" "+jsonOnly, b.String(), DoItMaxTokens)
}

// Chat builds a multi-turn coaching conversation. Message content is
// sanitized and unknown roles are treated as user turns.
func Chat(messages []llm.Message, goalName string, profile *models.UserProfile) llm.Request {
	var sys strings.Builder
	sys.WriteString(coachSystem)
	sys.WriteString(" Keep replies under 150 words, friendly and specific. Plain text only.")
	if name := utils.Sanitize(goalName); name != "" {
		fmt.Fprintf(&sys, "\nThe user is currently working on the goal %q.", name)
	}
	if profile != nil {
		var p strings.Builder
		writeProfile(&p, profile)
		if p.Len() > 0 {
			sys.WriteString("\n")
			sys.WriteString(strings.TrimSpace(p.String()))
		}
	}

	turns := make([]llm.Message, 0, len(messages))
	for _, m := range messages {
		content := utils.Sanitize(m.Content)
		if content == "" {
			continue
		}
		role := llm.RoleUser
		if m.Role == llm.RoleAssistant {
			role = llm.RoleAssistant
		}
		turns = append(turns, llm.Message{Role: role, Content: content})
	}
	return llm.Request{
		System:      sys.String(),
		Messages:    turns,
		MaxTokens:   ChatMaxTokens,
		Temperature: 0.8,
	}
}

func writeProfile(b *strings.Builder, p *models.UserProfile) {
	if p == nil {
		return
	}
	var parts []string
	if name := utils.Sanitize(p.Name); name != "" {
		parts = append(parts, "name "+name)
	}
	if age := utils.Sanitize(p.Age); age != "" {
		parts = append(parts, "age "+age)
	}
	if p.Gender != "" && p.Gender != models.GenderPreferNotToSay && p.Gender.Valid() {
		parts = append(parts, "gender "+string(p.Gender))
	}
	if len(parts) > 0 {
		fmt.Fprintf(b, "About the user: %s.\n", strings.Join(parts, ", "))
	}
}

func writeStep(b *strings.Builder, s models.Step) {
	fmt.Fprintf(b, "Step: %q.\n", utils.Sanitize(s.Title))
	if d := utils.Sanitize(s.Description); d != "" {
		fmt.Fprintf(b, "Step description: %s\n", d)
	}
	if d := utils.Sanitize(s.Duration); d != "" {
		fmt.Fprintf(b, "Expected duration: %s\n", d)
	}
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = utils.Sanitize(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
