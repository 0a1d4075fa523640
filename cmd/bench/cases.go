// README: Smoke checks: environment, migrations, API contract and throughput.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"tabiplan/internal/modules/interaction"
)

const (
	statusPass = "PASS"
	statusFail = "FAIL"
	statusSkip = "SKIP"
)

type Runner struct {
	cfg   Config
	httpc *http.Client
	db    *pgxpool.Pool
	redis *redis.Client
}

type Result struct {
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name string
	Run  func(ctx context.Context, r *Runner) Result
}

var sampleTrip = map[string]any{
	"mood":      "のんびりリラックス",
	"companion": "友人",
	"scope":     "国内",
	"budget":    "3万円〜5万円",
	"duration":  "1泊2日",
	"residence": "東京都",
}

func NewRunner(cfg Config) *Runner {
	return &Runner{
		cfg:   cfg,
		httpc: &http.Client{Timeout: 2 * time.Minute},
	}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.DSN != "" {
		if db, err := pgxpool.New(ctx, r.cfg.DSN); err == nil {
			r.db = db
		}
	}
	if r.cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
	}

	tests := r.cases()
	results := make([]Result, 0, len(tests))

	for _, tc := range tests {
		res := tc.Run(ctx, r)
		results = append(results, res)
		fmt.Printf("%-5s %s", res.Status, tc.Name)
		if res.Latency > 0 {
			fmt.Printf(" (%s)", res.Latency)
		}
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}

	if r.db != nil {
		r.db.Close()
	}
	if r.redis != nil {
		_ = r.redis.Close()
	}
	return results
}

func (r *Runner) cases() []TestCase {
	base := r.cfg.BaseURL
	hakone := url.QueryEscape("箱根（仙石原）")
	return []TestCase{
		{
			Name: "Env: Postgres connect",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: statusSkip, Note: "interaction log not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.db.Ping(ctx); err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				return Result{Status: statusPass}
			},
		},
		{
			Name: "Env: Redis connect",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.redis == nil {
					return Result{Status: statusSkip, Note: "redis sessions not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.redis.Ping(ctx).Err(); err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				return Result{Status: statusPass}
			},
		},
		{
			Name: "Migration: apply (optional)",
			Run: func(ctx context.Context, r *Runner) Result {
				if !r.cfg.ApplyMigration {
					return Result{Status: statusSkip, Note: "apply-migration=false"}
				}
				if r.db == nil {
					return Result{Status: statusFail, Note: "db not configured"}
				}
				sql, err := os.ReadFile(r.cfg.MigrationPath)
				if err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				for _, s := range splitSQL(string(sql)) {
					if _, err := r.db.Exec(ctx, s); err != nil {
						return Result{Status: statusFail, Note: err.Error()}
					}
				}
				return Result{Status: statusPass}
			},
		},
		{
			Name: "Migration: tables exist",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: statusSkip, Note: "db not configured"}
				}
				tables, err := extractTables(r.cfg.MigrationPath)
				if err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				for _, t := range tables {
					var exists bool
					err := r.db.QueryRow(ctx,
						"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name=$1)",
						t,
					).Scan(&exists)
					if err != nil {
						return Result{Status: statusFail, Note: err.Error()}
					}
					if !exists {
						return Result{Status: statusFail, Note: "missing table: " + t}
					}
				}
				return Result{Status: statusPass}
			},
		},
		httpCase("API: health", http.MethodGet, base+"/health", nil, 200),
		httpCase("API: create session", http.MethodPost, base+"/api/sessions", nil, 201),
		httpCase("API: unknown session -> 404", http.MethodGet, base+"/api/sessions/does-not-exist", nil, 404),
		sessionCase("API: select before suggestions -> 409", func(ctx context.Context, r *Runner, id string) (int, error) {
			return r.do(ctx, http.MethodPost, base+"/api/sessions/"+id+"/select", map[string]int{"index": 0}, nil)
		}, 409),
		sessionCase("API: invalid trip -> 400", func(ctx context.Context, r *Runner, id string) (int, error) {
			return r.do(ctx, http.MethodPost, base+"/api/sessions/"+id+"/suggestions", map[string]any{"duration": "十日"}, nil)
		}, 400),
		sessionCase("API: export before plan -> 404", func(ctx context.Context, r *Runner, id string) (int, error) {
			return r.do(ctx, http.MethodGet, base+"/api/sessions/"+id+"/export", nil, nil)
		}, 404),
		httpCase("API: weather preview", http.MethodGet, base+"/api/weather?place="+hakone+"&days=3", nil, 200),
		httpCase("API: weather bad days -> 400", http.MethodGet, base+"/api/weather?place="+hakone+"&days=40", nil, 400),
		{
			Name: "Flow: suggest, select, export (model)",
			Run:  func(ctx context.Context, r *Runner) Result { return modelFlow(ctx, r, base) },
		},
		{
			Name: "Redis: session document written",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.redis == nil {
					return Result{Status: statusSkip, Note: "redis not configured"}
				}
				id, err := r.createSession(ctx, base)
				if err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				ttl, err := r.redis.TTL(ctx, "tabiplan:session:"+id).Result()
				if err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				if ttl <= 0 {
					return Result{Status: statusFail, Note: "session key missing or without ttl"}
				}
				return Result{Status: statusPass, Note: fmt.Sprintf("ttl=%s", ttl)}
			},
		},

		// Performance
		{
			Name: "Perf: session create throughput",
			Run: func(ctx context.Context, r *Runner) Result {
				return perfLoad(ctx, r, http.MethodPost, base+"/api/sessions")
			},
		},
		{
			Name: "Perf: cached weather throughput",
			Run: func(ctx context.Context, r *Runner) Result {
				return perfLoad(ctx, r, http.MethodGet, base+"/api/weather?place="+hakone+"&days=3")
			},
		},
	}
}

func (r *Runner) do(ctx context.Context, method, url string, body any, out any) (int, error) {
	var rd io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = strings.NewReader(string(b))
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := r.httpc.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, err
		}
		return resp.StatusCode, nil
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

func (r *Runner) createSession(ctx context.Context, base string) (string, error) {
	var resp struct {
		ID string `json:"id"`
	}
	status, err := r.do(ctx, http.MethodPost, base+"/api/sessions", nil, &resp)
	if err != nil {
		return "", err
	}
	if status != http.StatusCreated || resp.ID == "" {
		return "", fmt.Errorf("create session: status=%d", status)
	}
	return resp.ID, nil
}

func httpCase(name, method, url string, body any, want int) TestCase {
	return TestCase{
		Name: name,
		Run: func(ctx context.Context, r *Runner) Result {
			start := time.Now()
			status, err := r.do(ctx, method, url, body, nil)
			if err != nil {
				return Result{Status: statusFail, Note: err.Error()}
			}
			if status != want {
				return Result{Status: statusFail, Latency: time.Since(start), Note: fmt.Sprintf("status=%d want=%d", status, want)}
			}
			return Result{Status: statusPass, Latency: time.Since(start)}
		},
	}
}

func sessionCase(name string, call func(ctx context.Context, r *Runner, id string) (int, error), want int) TestCase {
	return TestCase{
		Name: name,
		Run: func(ctx context.Context, r *Runner) Result {
			id, err := r.createSession(ctx, r.cfg.BaseURL)
			if err != nil {
				return Result{Status: statusFail, Note: err.Error()}
			}
			start := time.Now()
			status, err := call(ctx, r, id)
			if err != nil {
				return Result{Status: statusFail, Note: err.Error()}
			}
			if status != want {
				return Result{Status: statusFail, Note: fmt.Sprintf("status=%d want=%d", status, want)}
			}
			return Result{Status: statusPass, Latency: time.Since(start)}
		},
	}
}

func modelFlow(ctx context.Context, r *Runner, base string) Result {
	if !r.cfg.WithModel {
		return Result{Status: statusSkip, Note: "with-model=false"}
	}
	start := time.Now()
	id, err := r.createSession(ctx, base)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	var sug struct {
		Candidates []struct {
			Place string `json:"place"`
		} `json:"candidates"`
	}
	status, err := r.do(ctx, http.MethodPost, base+"/api/sessions/"+id+"/suggestions", sampleTrip, &sug)
	if err != nil || status != http.StatusOK || len(sug.Candidates) == 0 {
		return Result{Status: statusFail, Note: fmt.Sprintf("suggestions status=%d err=%v", status, err)}
	}
	if status, err := r.do(ctx, http.MethodPost, base+"/api/sessions/"+id+"/select", map[string]int{"index": 0}, nil); err != nil || status != http.StatusOK {
		return Result{Status: statusFail, Note: fmt.Sprintf("select status=%d err=%v", status, err)}
	}
	if status, err := r.do(ctx, http.MethodGet, base+"/api/sessions/"+id+"/export", nil, nil); err != nil || status != http.StatusOK {
		return Result{Status: statusFail, Note: fmt.Sprintf("export status=%d err=%v", status, err)}
	}
	note := "first candidate: " + sug.Candidates[0].Place
	if r.db != nil {
		rows, err := interaction.NewStore(r.db).ListBySession(ctx, id)
		if err != nil {
			return Result{Status: statusFail, Note: "interaction log: " + err.Error()}
		}
		if err := checkInteractions(rows); err != nil {
			return Result{Status: statusFail, Note: "interaction log: " + err.Error()}
		}
		note += fmt.Sprintf(", %d interactions logged", len(rows))
	}
	return Result{Status: statusPass, Latency: time.Since(start), Note: note}
}

// checkInteractions expects the log rows of one suggest + select run: a
// suggest call first, then at least one itinerary call.
func checkInteractions(rows []interaction.Interaction) error {
	if len(rows) < 2 {
		return fmt.Errorf("got %d rows, want at least 2", len(rows))
	}
	if rows[0].Kind != interaction.KindSuggest {
		return fmt.Errorf("first row kind=%q, want %q", rows[0].Kind, interaction.KindSuggest)
	}
	for _, in := range rows[1:] {
		if in.Kind != interaction.KindItinerary {
			return fmt.Errorf("row kind=%q, want %q", in.Kind, interaction.KindItinerary)
		}
	}
	for _, in := range rows {
		if !in.Success {
			return fmt.Errorf("%s call failed: %s", in.Kind, in.Error)
		}
	}
	return nil
}

func perfLoad(ctx context.Context, r *Runner, method, url string) Result {
	end := time.Now().Add(r.cfg.Duration)
	var count, errCount int64
	var mu sync.Mutex
	wg := sync.WaitGroup{}

	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) && ctx.Err() == nil {
				status, err := r.do(ctx, method, url, nil, nil)
				mu.Lock()
				if err != nil || status >= 500 {
					errCount++
				} else {
					count++
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if count == 0 {
		return Result{Status: statusFail, Note: "no requests completed"}
	}
	rps := float64(count) / r.cfg.Duration.Seconds()
	return Result{Status: statusPass, Note: fmt.Sprintf("rps=%.1f errors=%d", rps, errCount)}
}

func extractTables(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	re := regexp.MustCompile(`(?i)create\s+table\s+if\s+not\s+exists\s+([a-zA-Z0-9_]+)`)
	matches := re.FindAllStringSubmatch(string(b), -1)
	tables := make([]string, 0, len(matches))
	for _, m := range matches {
		tables = append(tables, m[1])
	}
	return tables, nil
}

func splitSQL(sql string) []string {
	lines := strings.Split(sql, "\n")
	filtered := make([]string, 0, len(lines))
	for _, line := range lines {
		l := strings.TrimSpace(line)
		if strings.HasPrefix(l, "--") || l == "" {
			continue
		}
		filtered = append(filtered, line)
	}
	parts := strings.Split(strings.Join(filtered, "\n"), ";")
	stmts := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts
}
