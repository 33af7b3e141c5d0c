package planner

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/devpath/core"
	"github.com/trezcool/devpath/core/plan"
	"github.com/trezcool/devpath/tests"
)

func newTestGenerator(t *testing.T, handler http.HandlerFunc) *Generator {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	pricing, err := NewPricing("0.005", "0.015")
	require.NoError(t, err)
	g, err := NewGenerator(Options{
		APIKey:      "test-key",
		BaseURL:     server.URL + "/v1",
		Model:       "gpt-4o-mini",
		Temperature: 0.7,
		MaxTokens:   512,
		Timeout:     5 * time.Second,
		Pricing:     pricing,
	}, testutil.NewLogger())
	require.NoError(t, err)
	return g
}

func chatHandler(t *testing.T, content string, usage map[string]int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		assert.Equal(t, "gpt-4o-mini", req["model"])

		body := map[string]interface{}{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"created": 1234567890,
			"model":   "gpt-4o-mini",
			"choices": []map[string]interface{}{
				{
					"index":         0,
					"message":       map[string]interface{}{"role": "assistant", "content": content},
					"finish_reason": "stop",
				},
			},
		}
		if usage != nil {
			body["usage"] = usage
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	}
}

const todoPlan = `{
  "title": "Todo App",
  "description": "A simple todo app",
  "category": "Web Development",
  "tech_stack": "Go, Echo , ,SQLite",
  "difficulty": "Beginner",
  "milestones": [
    {"milestone_title": "Setup", "steps": [{"description": "Init repo"}, {"description": "  "}, "not an object", {"step_description": "Install Go"}]},
    {"title": "Empty", "steps": [{"description": ""}]},
    {"steps": [{"description": "Write handlers"}, 42, {"description": 7}]}
  ]
}`

func TestGenerator_Generate(t *testing.T) {
	g := newTestGenerator(t, chatHandler(t, "```json\n"+todoPlan+"\n```", map[string]int{
		"prompt_tokens": 1000, "completion_tokens": 2000, "total_tokens": 3000,
	}))

	p, cost, err := g.Generate(context.Background(), "Build a todo app")
	require.NoError(t, err)

	want := plan.Plan{
		Title:       "Todo App",
		Description: "A simple todo app",
		Category:    "Web Development",
		TechStack:   []string{"Go", "Echo", "SQLite"},
		Difficulty:  "Beginner",
		Milestones: []plan.Milestone{
			{
				MilestoneNumber: 0,
				Title:           "Setup",
				Steps: []plan.Step{
					{StepNumber: 0, Description: "Init repo"},
					{StepNumber: 1, Description: "Install Go"},
				},
			},
			{
				MilestoneNumber: 1,
				Title:           "Milestone 3",
				Steps:           []plan.Step{{StepNumber: 0, Description: "Write handlers"}},
			},
		},
	}
	assert.Equal(t, want, p)
	assert.True(t, decimal.RequireFromString("0.035").Equal(cost), "cost = %s", cost)
}

func TestGenerator_Generate_estimatesCostWithoutUsage(t *testing.T) {
	g := newTestGenerator(t, chatHandler(t, todoPlan, nil))

	p, cost, err := g.Generate(context.Background(), "Build a todo app")
	require.NoError(t, err)
	assert.NotEmpty(t, p.Milestones)
	assert.True(t, cost.IsPositive())
	assert.True(t, cost.Equal(cost.Round(6)))
}

func TestGenerator_Generate_failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "upstream error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error": {"message": "boom", "type": "server_error"}}`))
			},
		},
		{name: "not JSON", handler: chatHandler(t, "Sure! Here is your plan.", nil)},
		{name: "wrong shape", handler: chatHandler(t, `{"title": "x", "milestones": "none"}`, nil)},
		{name: "no milestones", handler: chatHandler(t, `{"title": "x", "milestones": []}`, nil)},
		{
			name:    "no usable steps",
			handler: chatHandler(t, `{"title": "x", "milestones": [{"title": "a", "steps": ["a", {"description": " "}]}]}`, nil),
		},
		{name: "bad tech stack", handler: chatHandler(t, `{"title": "x", "tech_stack": 3, "milestones": [{"steps": [{"description": "a"}]}]}`, nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGenerator(t, tt.handler)
			_, _, err := g.Generate(context.Background(), "Build a todo app")
			require.Error(t, err)
			assert.True(t, core.IsGenerationFailed(err), "got %v", err)
		})
	}
}

func TestGenerator_Generate_cancelled(t *testing.T) {
	g := newTestGenerator(t, chatHandler(t, todoPlan, nil))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := g.Generate(ctx, "Build a todo app")
	assert.True(t, core.IsGenerationFailed(err))
}

func TestNewGenerator_requiresAPIKey(t *testing.T) {
	_, err := NewGenerator(Options{}, testutil.NewLogger())
	assert.Error(t, err)
}

func TestTechStack_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{name: "string", in: `"React, Node.js,  Tailwind CSS"`, want: []string{"React", "Node.js", "Tailwind CSS"}},
		{name: "list", in: `["Go", " ", "Postgres "]`, want: []string{"Go", "Postgres"}},
		{name: "empty string", in: `""`, want: []string{}},
		{name: "null", in: `null`, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ts techStack
			require.NoError(t, json.Unmarshal([]byte(tt.in), &ts))
			assert.Equal(t, tt.want, []string(ts))
		})
	}
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "bare", in: ` {"a": 1} `, want: `{"a": 1}`},
		{name: "json fence", in: "```json\n{\"a\": 1}\n```", want: `{"a": 1}`},
		{name: "plain fence", in: "```\n{\"a\": 1}\n```\n", want: `{"a": 1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripFences(tt.in))
		})
	}
}

func TestPricing_Cost(t *testing.T) {
	pricing, err := NewPricing("0.005", "0.015")
	require.NoError(t, err)

	tests := []struct {
		name     string
		in, out  int
		wantCost string
	}{
		{name: "zero", wantCost: "0"},
		{name: "input only", in: 1000, wantCost: "0.005"},
		{name: "both", in: 123, out: 456, wantCost: "0.007455"},
		{name: "rounded", in: 1, out: 1, wantCost: "0.00002"},
		{name: "negative clamps", in: -5, out: 1000, wantCost: "0.015"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pricing.Cost(tt.in, tt.out)
			assert.True(t, decimal.RequireFromString(tt.wantCost).Equal(got), "got %s", got)
		})
	}

	_, err = NewPricing("-1", "0")
	assert.Error(t, err)
	_, err = NewPricing("lol", "0")
	assert.Error(t, err)
}

func TestEstimateUnits(t *testing.T) {
	assert.Equal(t, 0, EstimateUnits(""))
	assert.Equal(t, 1, EstimateUnits("abc"))
	assert.Equal(t, 2, EstimateUnits("abcde"))
}

func TestMockGenerator(t *testing.T) {
	p := plan.Plan{Title: "x", Milestones: []plan.Milestone{{Title: "m"}}}
	g := NewMockGenerator(p, decimal.NewFromFloat(0.01))

	got, cost, err := g.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, p, got)
	assert.Equal(t, "0.01", cost.String())
	assert.Equal(t, []string{"hello"}, g.Prompts)

	g.Err = core.NewGenerationError(nil)
	_, _, err = g.Generate(context.Background(), "again")
	assert.True(t, core.IsGenerationFailed(err))
}

func TestConsoleGenerator(t *testing.T) {
	pricing, _ := NewPricing("0.005", "0.015")
	g := NewConsoleGenerator(testutil.NewLogger(), pricing)

	p, cost, err := g.Generate(context.Background(), "Build a todo app")
	require.NoError(t, err)
	assert.Equal(t, "Build a todo app", p.Title)
	assert.Len(t, p.Milestones, 3)
	assert.False(t, cost.IsNegative())
}
