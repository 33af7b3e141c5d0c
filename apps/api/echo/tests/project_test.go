package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/devpath/core/plan"
	testutil "github.com/trezcool/devpath/tests"
)

var (
	errProjectNotFound = httpErr{Error: "project not found"}
	errGeneration      = httpErr{Error: "plan generation failed, please try again"}
)

func Test_projectApi_generate(t *testing.T) {
	app := setup(t)
	hero := testutil.CreateUser(t, app.usrRepo, "hero", "hero@test.cd", "", true)
	token := app.getToken(t, hero)

	dirty := testutil.SamplePlan("Todo CLI")
	dirty.Milestones[0].Steps[0].IsDone = true
	dirty.IsProjectDone = true
	app.gen.Plan = dirty

	tests := []struct {
		httpTest
		genErr  error
		genPlan *plan.Plan
	}{
		{httpTest: httpTest{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}},
		{
			httpTest: httpTest{
				name: "prompt required", token: token, body: []byte(`{"prompt": "  "}`), wantCode: http.StatusBadRequest,
				wantData: marchallObj(t, map[string]string{"prompt": "this field may not be blank"}),
			},
		},
		{
			httpTest: httpTest{
				name: "generator failure", token: token, body: []byte(`{"prompt": "todo app"}`),
				wantCode: http.StatusBadGateway, wantData: marchallObj(t, errGeneration),
			},
			genErr: errors.New("upstream down"),
		},
		{
			httpTest: httpTest{
				name: "empty plan", token: token, body: []byte(`{"prompt": "todo app"}`),
				wantCode: http.StatusBadGateway, wantData: marchallObj(t, errGeneration),
			},
			genPlan: &plan.Plan{Title: "nothing"},
		},
		{
			httpTest: httpTest{
				name: "generated", token: token, body: []byte(`{"prompt": "todo app"}`), wantCode: http.StatusOK,
				wantData: marchallObj(t, plan.Draft{Data: testutil.SamplePlan("Todo CLI"), Cost: app.gen.Cost}),
			},
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/projects/generate"

		t.Run(tt.name, func(t *testing.T) {
			app.gen.Err = tt.genErr
			app.gen.Plan = dirty
			if tt.genPlan != nil {
				app.gen.Plan = *tt.genPlan
			}
			app.run(t, tt.httpTest)
		})
	}

	// nothing persisted
	projects, err := app.prjRepo.QueryProjects(context.Background(), hero.ID, "created_at DESC")
	require.NoError(t, err)
	assert.Empty(t, projects)
}

func Test_projectApi_generate_costIsNumber(t *testing.T) {
	app := setup(t)
	hero := testutil.CreateUser(t, app.usrRepo, "hero", "hero@test.cd", "", true)

	req, rec := newAuthRequest(http.MethodPost, "/v1/projects/generate", app.getToken(t, hero), []byte(`{"prompt": "todo"}`))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Cost json.Number `json:"cost"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "0.035", resp.Cost.String())
}

func Test_projectApi_save(t *testing.T) {
	app := setup(t)
	hero := testutil.CreateUser(t, app.usrRepo, "hero", "hero@test.cd", "", true)
	token := app.getToken(t, hero)

	valid := `{
		"data": {
			"title": "Todo CLI",
			"tech_stack": ["Go"],
			"milestones": [
				{"milestone_number": 1, "title": "Core", "steps": [{"step_number": 0, "description": "Model tasks", "is_done": true}]},
				{"milestone_number": 0, "title": "Setup", "is_completed": true, "steps": [
					{"step_number": 0, "description": "Create the module"},
					{"step_number": 1, "description": "   "}
				]}
			]
		},
		"cost": 0.0125
	}`

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "malformed body", token: token, body: []byte(`{"data": [`), wantCode: http.StatusBadRequest},
		{name: "no milestones", token: token, body: []byte(`{"data": {"title": "x", "milestones": []}, "cost": 0}`), wantCode: http.StatusBadRequest},
		{
			name: "negative cost", token: token, wantCode: http.StatusBadRequest,
			body:     []byte(`{"data": {"title": "x", "milestones": [{"milestone_number": 0, "title": "m", "steps": [{"step_number": 0, "description": "s"}]}]}, "cost": -1}`),
			wantData: marchallObj(t, map[string]string{"cost": "cost cannot be negative"}),
		},
		{name: "saved", token: token, body: []byte(valid), wantCode: http.StatusCreated},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/projects/save"

		t.Run(tt.name, func(t *testing.T) {
			rec := app.run(t, tt)
			if tt.wantCode != http.StatusCreated {
				return
			}

			var proj plan.Project
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &proj))
			assert.NotEmpty(t, proj.ID)
			assert.Equal(t, 1, proj.Version)
			assert.Equal(t, "0.0125", proj.Cost.String())
			assert.False(t, proj.IsProjectDone)
			require.Len(t, proj.Milestones, 2)
			assert.Equal(t, "Setup", proj.Milestones[0].Title)
			assert.False(t, proj.Milestones[0].IsCompleted)
			assert.Len(t, proj.Milestones[0].Steps, 1)
			assert.False(t, proj.Milestones[1].Steps[0].IsDone)
			assert.NotContains(t, rec.Body.String(), "owner")

			stored, err := app.prjRepo.GetProject(context.Background(), hero.ID, proj.ID)
			require.NoError(t, err)
			assert.Equal(t, proj.Plan, stored.Plan)
		})
	}
}

func Test_projectApi_query(t *testing.T) {
	app := setup(t)
	hero := testutil.CreateUser(t, app.usrRepo, "hero", "hero@test.cd", "", true)
	other := testutil.CreateUser(t, app.usrRepo, "other", "other@test.cd", "", true)
	loner := testutil.CreateUser(t, app.usrRepo, "loner", "loner@test.cd", "", true)
	token := app.getToken(t, hero)

	now := time.Now().UTC()
	beta := testutil.CreateProject(t, app.prjRepo, hero.ID, "Beta", now.Add(-2*time.Hour))
	alpha := testutil.CreateProject(t, app.prjRepo, hero.ID, "Alpha", now.Add(-time.Hour))
	gamma := testutil.CreateProject(t, app.prjRepo, hero.ID, "Gamma", now)
	testutil.CreateProject(t, app.prjRepo, other.ID, "Other's", now)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/projects", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "default ordering", path: "/v1/projects", token: token, wantCode: http.StatusOK, wantData: marchallList(t, gamma, alpha, beta)},
		{name: "created_at", path: "/v1/projects?ordering=created_at", token: token, wantCode: http.StatusOK, wantData: marchallList(t, beta, alpha, gamma)},
		{name: "title", path: "/v1/projects?ordering=title", token: token, wantCode: http.StatusOK, wantData: marchallList(t, alpha, beta, gamma)},
		{name: "-title", path: "/v1/projects?ordering=-title", token: token, wantCode: http.StatusOK, wantData: marchallList(t, gamma, beta, alpha)},
		{name: "unknown field", path: "/v1/projects?ordering=owner_id", token: token, wantCode: http.StatusBadRequest},
		{name: "none saved", path: "/v1/projects", token: app.getToken(t, loner), wantCode: http.StatusOK, wantData: marchallList(t)},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet

		t.Run(tt.name, func(t *testing.T) {
			app.run(t, tt)
		})
	}
}

func Test_projectApi_retrieve(t *testing.T) {
	app := setup(t)
	hero := testutil.CreateUser(t, app.usrRepo, "hero", "hero@test.cd", "", true)
	other := testutil.CreateUser(t, app.usrRepo, "other", "other@test.cd", "", true)
	naughty := testutil.CreateUser(t, app.usrRepo, "ndog", "ndog@test.cd", "", false)
	proj := testutil.CreateProject(t, app.prjRepo, hero.ID, "Todo CLI")
	path := "/v1/projects/" + proj.ID

	tests := []httpTest{
		{name: "Auth required", path: path, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Inactive user", path: path, token: app.getToken(t, naughty), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{name: "other owner", path: path, token: app.getToken(t, other), wantCode: http.StatusNotFound, wantData: marchallObj(t, errProjectNotFound)},
		{name: "unknown id", path: "/v1/projects/lol", token: app.getToken(t, hero), wantCode: http.StatusNotFound, wantData: marchallObj(t, errProjectNotFound)},
		{name: "found", path: path, token: app.getToken(t, hero), wantCode: http.StatusOK, wantData: marchallObj(t, proj)},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet

		t.Run(tt.name, func(t *testing.T) {
			app.run(t, tt)
		})
	}
}

func Test_projectApi_setStatus(t *testing.T) {
	app := setup(t)
	hero := testutil.CreateUser(t, app.usrRepo, "hero", "hero@test.cd", "", true)
	other := testutil.CreateUser(t, app.usrRepo, "other", "other@test.cd", "", true)
	proj := testutil.CreateProject(t, app.prjRepo, hero.ID, "Todo CLI")
	token := app.getToken(t, hero)
	milestonePath := "/v1/projects/" + proj.ID + "/milestone"
	stepPath := milestonePath + "/step"

	// completion state after each request, in order
	tests := []struct {
		httpTest
		wantMilestones []bool
		wantDone       bool
	}{
		{httpTest: httpTest{name: "Auth required", path: milestonePath, wantCode: http.StatusUnauthorized}},
		{
			httpTest: httpTest{
				name: "other owner", path: milestonePath, token: app.getToken(t, other),
				body: []byte(`{"milestone_number": 0, "is_completed": true}`), wantCode: http.StatusNotFound,
				wantData: marchallObj(t, errProjectNotFound),
			},
		},
		{
			httpTest: httpTest{
				name: "missing fields", path: milestonePath, token: token, body: []byte(`{"milestone_number": 0}`),
				wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"is_completed": "this field is required"}),
			},
		},
		{
			httpTest: httpTest{
				name: "unknown milestone", path: milestonePath, token: token, body: []byte(`{"milestone_number": 9, "is_completed": true}`),
				wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "milestone not found"}),
			},
		},
		{
			httpTest: httpTest{
				name: "unknown step", path: stepPath, token: token, body: []byte(`{"milestone_number": 0, "step_number": 9, "is_done": true}`),
				wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "step not found"}),
			},
		},
		{
			httpTest: httpTest{
				name: "complete milestone 0", path: milestonePath, token: token,
				body: []byte(`{"milestone_number": 0, "is_completed": true}`), wantCode: http.StatusOK,
			},
			wantMilestones: []bool{true, false},
		},
		{
			httpTest: httpTest{
				name: "first step of milestone 1", path: stepPath, token: token,
				body: []byte(`{"milestone_number": 1, "step_number": 0, "is_done": true}`), wantCode: http.StatusOK,
			},
			wantMilestones: []bool{true, false},
		},
		{
			httpTest: httpTest{
				name: "last step of milestone 1", path: stepPath, token: token,
				body: []byte(`{"milestone_number": 1, "step_number": 1, "is_done": true}`), wantCode: http.StatusOK,
			},
			wantMilestones: []bool{true, true},
			wantDone:       true,
		},
		{
			httpTest: httpTest{
				name: "uncomplete milestone 0 cascades", path: milestonePath, token: token,
				body: []byte(`{"milestone_number": 0, "is_completed": false}`), wantCode: http.StatusOK,
			},
			wantMilestones: []bool{false, false},
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPatch

		t.Run(tt.name, func(t *testing.T) {
			rec := app.run(t, tt.httpTest)
			if tt.wantCode != http.StatusOK {
				return
			}

			var got plan.Project
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			states := make([]bool, 0, len(got.Milestones))
			for _, m := range got.Milestones {
				states = append(states, m.IsCompleted)
			}
			assert.Equal(t, tt.wantMilestones, states)
			assert.Equal(t, tt.wantDone, got.IsProjectDone)

			stored, err := app.prjRepo.GetProject(context.Background(), hero.ID, proj.ID)
			require.NoError(t, err)
			assert.Equal(t, stored.Version, got.Version)
		})
	}
}

func Test_projectApi_setStatus_concurrent(t *testing.T) {
	app := setup(t)
	hero := testutil.CreateUser(t, app.usrRepo, "hero", "hero@test.cd", "", true)
	proj := testutil.CreateProject(t, app.prjRepo, hero.ID, "Todo CLI")
	token := app.getToken(t, hero)

	// every request either applies or fails with a conflict; none is lost silently
	const n = 8
	var wg sync.WaitGroup
	codes := make(chan int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req, rec := newAuthRequest(
				http.MethodPatch, "/v1/projects/"+proj.ID+"/milestone/step", token,
				[]byte(`{"milestone_number": 0, "step_number": 0, "is_done": true}`),
			)
			app.ServeHTTP(rec, req)
			codes <- rec.Code
		}()
	}
	wg.Wait()
	close(codes)

	var applied int
	for code := range codes {
		switch code {
		case http.StatusOK:
			applied++
		case http.StatusConflict:
		default:
			t.Errorf("unexpected code %d", code)
		}
	}
	assert.GreaterOrEqual(t, applied, 1)

	stored, err := app.prjRepo.GetProject(context.Background(), hero.ID, proj.ID)
	require.NoError(t, err)
	assert.Equal(t, 1+applied, stored.Version)
	assert.True(t, stored.Milestones[0].Steps[0].IsDone)
}
