package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/tiaraboard/tiara/internal/adapters/http/api"
	"github.com/tiaraboard/tiara/internal/app"
	"github.com/tiaraboard/tiara/internal/domain/model"
	"github.com/tiaraboard/tiara/pkg/logger"
)

func init() {
	_ = logger.Init("text")
}

const (
	testSecret    = "test-secret"
	testAdminCode = "admin-code"
)

func testEvent() model.Event {
	return model.Event{
		Name: "Test Pageant",
		Divisions: []model.Division{
			{ID: "miss", Label: "Miss"},
			{ID: "teen", Label: "Teen"},
		},
		Categories: []model.Category{
			{
				ID: "gown", Label: "Evening Gown", Order: 1,
				Criteria: []model.Criterion{
					{ID: "poise", Label: "Poise", Percentage: 0.6},
					{ID: "fit", Label: "Fit", Percentage: 0.4},
				},
			},
		},
		Judges: []model.Judge{
			{ID: "j1", Name: "Judge One", DivisionID: "miss", AccessCode: "code-j1"},
			{ID: "j2", Name: "Judge Two", DivisionID: "miss", AccessCode: "code-j2"},
		},
		Contestants: []model.Contestant{
			{ID: "c1", Number: 1, Name: "Alpha", DivisionID: "miss"},
			{ID: "c2", Number: 2, Name: "Bravo", DivisionID: "miss"},
			{ID: "c3", Number: 1, Name: "Charlie", DivisionID: "teen"},
		},
	}
}

type testAPI struct {
	srv *httptest.Server
	svc *app.Service
}

func newTestAPI(ctx context.Context) *testAPI {
	svc := app.New(app.WithEvent(testEvent()))
	if err := svc.Start(ctx); err != nil {
		panic(err)
	}
	auth := api.NewAuthService(testSecret, testAdminCode, time.Hour, svc)
	mux := http.NewServeMux()
	api.NewServer(svc, svc, auth).Register(ctx, mux)
	return &testAPI{srv: httptest.NewServer(mux), svc: svc}
}

func (t *testAPI) close() {
	t.srv.Close()
	t.svc.Stop()
}

func (t *testAPI) login(accessCode string) string {
	body, _ := json.Marshal(map[string]string{"access_code": accessCode})
	resp, err := http.Post(t.srv.URL+"/login", "application/json", bytes.NewReader(body))
	if err != nil {
		panic(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		panic(fmt.Sprintf("login %s: status %d", accessCode, resp.StatusCode))
	}
	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		panic(err)
	}
	return out.AccessToken
}

func (t *testAPI) do(method, path, token string, body any) *http.Response {
	var reader *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, t.srv.URL+path, reader)
	if err != nil {
		panic(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		panic(err)
	}
	return resp
}

func decodeBody[T any](resp *http.Response) T {
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		panic(err)
	}
	return v
}

func submitBody(contestantID string, poise, fit float64) map[string]any {
	return map[string]any{
		"category_id":   "gown",
		"contestant_id": contestantID,
		"scores": []map[string]any{
			{"criterion_id": "poise", "raw_score": poise},
			{"criterion_id": "fit", "raw_score": fit},
		},
	}
}

func TestLogin(t *testing.T) {
	Convey("Given a running API", t, func() {
		ctx := context.Background()
		ta := newTestAPI(ctx)
		defer ta.close()

		Convey("When logging in with the administrator code", func() {
			resp := ta.do(http.MethodPost, "/login", "", map[string]string{"access_code": testAdminCode})

			Convey("Then an admin token is issued", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				out := decodeBody[map[string]any](resp)
				So(out["role"], ShouldEqual, "admin")
				So(out["access_token"], ShouldNotBeEmpty)
			})
		})

		Convey("When logging in with a judge access code", func() {
			resp := ta.do(http.MethodPost, "/login", "", map[string]string{"access_code": "code-j1"})

			Convey("Then a judge token carries the judge id", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				out := decodeBody[map[string]any](resp)
				So(out["role"], ShouldEqual, "judge")
				So(out["judge_id"], ShouldEqual, "j1")
			})
		})

		Convey("When the access code is unknown", func() {
			resp := ta.do(http.MethodPost, "/login", "", map[string]string{"access_code": "nope"})
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusUnauthorized)
		})

		Convey("When the access code is missing", func() {
			resp := ta.do(http.MethodPost, "/login", "", map[string]string{})
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestSubmissionRoutes(t *testing.T) {
	Convey("Given a running API with a judge logged in", t, func() {
		ctx := context.Background()
		ta := newTestAPI(ctx)
		defer ta.close()
		judge := ta.login("code-j1")

		Convey("When submitting without a token", func() {
			resp := ta.do(http.MethodPost, "/submissions", "", submitBody("c1", 55, 38))
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusUnauthorized)
		})

		Convey("When submitting with a garbage token", func() {
			resp := ta.do(http.MethodPost, "/submissions", "not-a-token", submitBody("c1", 55, 38))
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusUnauthorized)
		})

		Convey("When submitting a valid sheet", func() {
			resp := ta.do(http.MethodPost, "/submissions", judge, submitBody("c1", 55, 38))

			Convey("Then the submission is created and locked", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusCreated)
				out := decodeBody[map[string]any](resp)
				So(out["locked"], ShouldEqual, true)
			})

			Convey("And resubmitting the same tuple conflicts", func() {
				second := ta.do(http.MethodPost, "/submissions", judge, submitBody("c1", 50, 30))
				So(second.StatusCode, ShouldEqual, http.StatusConflict)
				out := decodeBody[map[string]any](second)
				So(out["code"], ShouldEqual, "already_submitted")
			})
		})

		Convey("When a raw score is out of range", func() {
			resp := ta.do(http.MethodPost, "/submissions", judge, submitBody("c1", 60.5, 38))
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			out := decodeBody[map[string]any](resp)
			So(out["code"], ShouldEqual, "validation_error")
		})

		Convey("When scoring a contestant from another division", func() {
			resp := ta.do(http.MethodPost, "/submissions", judge, submitBody("c3", 40, 30))
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the body is incomplete", func() {
			resp := ta.do(http.MethodPost, "/submissions", judge, map[string]any{"category_id": "gown"})
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When an administrator uses a judge route", func() {
			admin := ta.login(testAdminCode)
			resp := ta.do(http.MethodPost, "/submissions", admin, submitBody("c1", 55, 38))
			defer resp.Body.Close()

			Convey("Then the role gate passes but no judge record matches", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestLockRoutes(t *testing.T) {
	Convey("Given a locked submission", t, func() {
		ctx := context.Background()
		ta := newTestAPI(ctx)
		defer ta.close()
		judge := ta.login("code-j1")
		admin := ta.login(testAdminCode)

		resp := ta.do(http.MethodPost, "/submissions", judge, submitBody("c1", 55, 38))
		resp.Body.Close()
		So(resp.StatusCode, ShouldEqual, http.StatusCreated)

		Convey("When a judge tries to remove the lock", func() {
			resp := ta.do(http.MethodDelete, "/locks/j1/gown/c1", judge, nil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusForbidden)
		})

		Convey("When an administrator removes the lock", func() {
			resp := ta.do(http.MethodDelete, "/locks/j1/gown/c1", admin, nil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			Convey("Then the judge can resubmit", func() {
				resp := ta.do(http.MethodPost, "/submissions", judge, submitBody("c1", 50, 30))
				defer resp.Body.Close()
				So(resp.StatusCode, ShouldEqual, http.StatusCreated)
			})
		})

		Convey("When removing a lock that does not exist", func() {
			resp := ta.do(http.MethodDelete, "/locks/j1/gown/c2", admin, nil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})

		Convey("When creating a lock for the pending tuple", func() {
			resp := ta.do(http.MethodPost, "/locks", judge,
				map[string]string{"category_id": "gown", "contestant_id": "c2"})
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusCreated)
		})
	})
}

func TestReadRoutes(t *testing.T) {
	Convey("Given a fully scored category", t, func() {
		ctx := context.Background()
		ta := newTestAPI(ctx)
		defer ta.close()
		j1 := ta.login("code-j1")
		j2 := ta.login("code-j2")

		for token, scores := range map[string][2][2]float64{
			j1: {{58, 39}, {50, 30}},
			j2: {{52, 33}, {55, 35}},
		} {
			for i, contestant := range []string{"c1", "c2"} {
				resp := ta.do(http.MethodPost, "/submissions", token,
					submitBody(contestant, scores[i][0], scores[i][1]))
				resp.Body.Close()
				So(resp.StatusCode, ShouldEqual, http.StatusCreated)
			}
		}

		Convey("When reading the category standings", func() {
			resp := ta.do(http.MethodGet, "/standings/category?division=miss&category=gown", "", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			rows := decodeBody[[]map[string]any](resp)
			So(rows, ShouldHaveLength, 2)
		})

		Convey("When the standings query is incomplete", func() {
			resp := ta.do(http.MethodGet, "/standings/category?division=miss", "", nil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When reading the overall standings", func() {
			resp := ta.do(http.MethodGet, "/standings/overall?division=miss", "", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			rows := decodeBody[[]map[string]any](resp)
			So(rows, ShouldHaveLength, 2)
		})

		Convey("When reading insights for a ranked contestant", func() {
			resp := ta.do(http.MethodGet, "/insights/c1?division=miss", "", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			report := decodeBody[map[string]any](resp)
			So(report["contestant_id"], ShouldEqual, "c1")
		})

		Convey("When comparing two contestants head to head", func() {
			resp := ta.do(http.MethodGet, "/headtohead?division=miss&a=c1&b=c2", "", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			h := decodeBody[map[string]any](resp)
			So(h["a"], ShouldEqual, "c1")
			So(h["b"], ShouldEqual, "c2")
		})

		Convey("When exporting the category as CSV", func() {
			resp := ta.do(http.MethodGet, "/export/category.csv?division=miss&category=gown", "", nil)
			defer resp.Body.Close()

			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(resp.Header.Get("Content-Type"), ShouldStartWith, "text/csv")
			So(resp.Header.Get("Content-Disposition"), ShouldContainSubstring, "category-gown.csv")

			buf := new(bytes.Buffer)
			_, _ = buf.ReadFrom(resp.Body)
			lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
			So(lines, ShouldHaveLength, 3)
			So(lines[0], ShouldEqual, "placement,number,name,rank_sum,judge_j1,judge_j2")
		})

		Convey("When exporting the overall standings as CSV", func() {
			resp := ta.do(http.MethodGet, "/export/overall.csv?division=miss", "", nil)
			defer resp.Body.Close()

			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			buf := new(bytes.Buffer)
			_, _ = buf.ReadFrom(resp.Body)
			So(buf.String(), ShouldContainSubstring, "total_points")
		})

		Convey("When a judge reads their own sheet", func() {
			resp := ta.do(http.MethodGet, "/judges/j1/sheet?category=gown", j1, nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			entries := decodeBody[[]map[string]any](resp)
			So(entries, ShouldHaveLength, 4)
		})

		Convey("When a judge reads another judge's sheet", func() {
			resp := ta.do(http.MethodGet, "/judges/j2/sheet?category=gown", j1, nil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusForbidden)
		})

		Convey("When an administrator reads any sheet", func() {
			admin := ta.login(testAdminCode)
			resp := ta.do(http.MethodGet, "/judges/j2/sheet?category=gown", admin, nil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
		})
	})
}

func TestEventRoutes(t *testing.T) {
	Convey("Given a running API", t, func() {
		ctx := context.Background()
		ta := newTestAPI(ctx)
		defer ta.close()

		Convey("When listing divisions", func() {
			resp := ta.do(http.MethodGet, "/divisions", "", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			divisions := decodeBody[[]map[string]any](resp)
			So(divisions, ShouldHaveLength, 2)
		})

		Convey("When listing categories", func() {
			resp := ta.do(http.MethodGet, "/categories", "", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			categories := decodeBody[[]map[string]any](resp)
			So(categories, ShouldHaveLength, 1)
		})

		Convey("When listing contestants for a division", func() {
			resp := ta.do(http.MethodGet, "/contestants?division=teen", "", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			contestants := decodeBody[[]map[string]any](resp)
			So(contestants, ShouldHaveLength, 1)
		})

		Convey("When listing contestants without a division", func() {
			resp := ta.do(http.MethodGet, "/contestants", "", nil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When checking health", func() {
			resp := ta.do(http.MethodGet, "/healthz", "", nil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
		})

		Convey("When reading stats", func() {
			resp := ta.do(http.MethodGet, "/stats", "", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			stats := decodeBody[map[string]any](resp)
			So(stats["event"], ShouldEqual, "Test Pageant")
		})
	})
}

func TestTokenValidation(t *testing.T) {
	Convey("Given the auth service", t, func() {
		ctx := context.Background()
		ta := newTestAPI(ctx)
		defer ta.close()
		auth := api.NewAuthService(testSecret, testAdminCode, time.Hour, ta.svc)

		Convey("When parsing a token it issued", func() {
			token, err := auth.IssueJWT("j1", api.RoleJudge, "miss")
			So(err, ShouldBeNil)

			claims, err := auth.Parse(token)
			So(err, ShouldBeNil)
			So(claims.Sub, ShouldEqual, "j1")
			So(claims.Role, ShouldEqual, api.RoleJudge)
			So(claims.DivisionID, ShouldEqual, "miss")
		})

		Convey("When parsing a token signed with another secret", func() {
			other := api.NewAuthService("other-secret", testAdminCode, time.Hour, ta.svc)
			token, err := other.IssueJWT("j1", api.RoleJudge, "miss")
			So(err, ShouldBeNil)

			_, err = auth.Parse(token)
			So(err, ShouldNotBeNil)
		})

		Convey("When parsing an expired token", func() {
			expired := api.NewAuthService(testSecret, testAdminCode, -time.Minute, ta.svc)
			token, err := expired.IssueJWT("j1", api.RoleJudge, "miss")
			So(err, ShouldBeNil)

			_, err = auth.Parse(token)
			So(err, ShouldNotBeNil)
		})
	})
}
