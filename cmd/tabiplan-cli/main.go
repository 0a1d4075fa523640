// README: Terminal client; collects a trip from flags, shows suggestions with weather, then chats on stdin.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"tabiplan/internal/config"
	"tabiplan/internal/modules/session"
	"tabiplan/internal/service"
	"tabiplan/internal/types"
	"tabiplan/internal/wiring"
)

func main() {
	var trip types.TripRequest
	flag.StringVar(&trip.Residence, "residence", "東京都", "居住地")
	flag.StringVar(&trip.Companion, "companion", types.Companions[0], "旅行のメンバー: "+strings.Join(types.Companions, ", "))
	flag.StringVar(&trip.Duration, "duration", types.Durations[0], "旅行の期間: "+strings.Join(types.Durations, ", "))
	flag.StringVar(&trip.Budget, "budget", types.Budgets[0], "一人当たりの予算: "+strings.Join(types.Budgets, ", "))
	flag.StringVar(&trip.Mood, "mood", types.Moods[0], "旅行の気分: "+strings.Join(types.Moods, ", "))
	flag.StringVar(&trip.Scope, "scope", types.Scopes[0], "行き先のタイプ: "+strings.Join(types.Scopes, ", "))
	flag.StringVar(&trip.Request, "request", "", "その他の具体的な要望")
	flag.StringVar(&trip.StartDate, "start", "", "出発日 (YYYY-MM-DD)")
	verbose := flag.Bool("v", false, "log upstream diagnostics to stderr")
	flag.Parse()

	level := slog.LevelError
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := trip.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	llm, closeLLM, err := wiring.NewLLM(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "llm provider: %v\n", err)
		os.Exit(1)
	}
	defer closeLLM()

	upstream, err := wiring.NewUpstream(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "upstream: %v\n", err)
		os.Exit(1)
	}

	planner := service.NewPlanner(service.PlannerConfig{
		LLM:         llm,
		Sessions:    session.NewMemoryStore(cfg.Session.TTL),
		Locator:     upstream.Geocoder,
		Forecasts:   upstream.Weather,
		Access:      upstream.Access,
		WeatherDays: cfg.Weather.Days,
		Logger:      logger,
	})

	if err := run(ctx, planner, trip, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, planner *service.Planner, trip types.TripRequest, in io.Reader, out io.Writer) error {
	sess, err := planner.CreateSession(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "提案を生成中...")
	res, err := planner.Suggest(ctx, sess.ID, trip)
	if err != nil {
		return err
	}
	printPreviews(out, res.Previews)

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	index, ok := askChoice(scanner, out, len(res.Previews))
	if !ok {
		return nil
	}
	place := res.Previews[index].Candidate.Place
	fmt.Fprintf(out, "「%s」のプランを生成中...\n", place)
	reply, err := planner.SelectDestination(ctx, sess.ID, index)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%s\n\n", reply.Content)

	fmt.Fprintln(out, "リクエストを入力してください（/save <file> で保存、/quit で終了）")
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/quit":
			return nil
		case strings.HasPrefix(line, "/save"):
			name := strings.TrimSpace(strings.TrimPrefix(line, "/save"))
			if name == "" {
				name = service.ExportFilename
			}
			if err := save(ctx, planner, sess.ID, name); err != nil {
				fmt.Fprintf(out, "保存できませんでした: %v\n", err)
				continue
			}
			fmt.Fprintf(out, "%s に保存しました\n", name)
		default:
			fmt.Fprintln(out, "プランを修正中です...")
			reply, err := planner.SendMessage(ctx, sess.ID, line)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "\n%s\n\n", reply.Content)
		}
	}
}

func printPreviews(out io.Writer, previews []service.Preview) {
	fmt.Fprintln(out, "\n### 提案された旅行先")
	for i, pv := range previews {
		fmt.Fprintf(out, "\n提案 %d: %s\n", i+1, pv.Candidate.Place)
		if pv.Candidate.Summary != "" {
			fmt.Fprintf(out, "  特徴: %s\n", pv.Candidate.Summary)
		}
		if pv.Candidate.Reason != "" {
			fmt.Fprintf(out, "  理由: %s\n", pv.Candidate.Reason)
		}
		if pv.Access != nil {
			fmt.Fprintf(out, "  アクセス: 車で約%d分 (%s)\n", pv.Access.Minutes, pv.Access.Distance)
		}
		if pv.DistanceKm != nil {
			fmt.Fprintf(out, "  直線距離: 約%.1fkm\n", *pv.DistanceKm)
		}
		if pv.LocationNotice != "" {
			fmt.Fprintf(out, "  %s\n", pv.LocationNotice)
		}
		if pv.WeatherNotice != "" {
			fmt.Fprintf(out, "  %s\n", pv.WeatherNotice)
		}
		if pv.Forecast != nil {
			for _, line := range pv.Forecast.Lines() {
				fmt.Fprintf(out, "  %s\n", line)
			}
		}
	}
	fmt.Fprintln(out)
}

func askChoice(scanner *bufio.Scanner, out io.Writer, n int) (int, bool) {
	for {
		fmt.Fprintf(out, "詳細プランを見る提案の番号を入力してください (1-%d, q で終了): ", n)
		if !scanner.Scan() {
			return 0, false
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "q" {
			return 0, false
		}
		if i, err := strconv.Atoi(text); err == nil && i >= 1 && i <= n {
			return i - 1, true
		}
	}
}

func save(ctx context.Context, planner *service.Planner, sessionID, name string) error {
	text, err := planner.Export(ctx, sessionID, service.ExportPlan)
	if err != nil {
		return err
	}
	return os.WriteFile(name, []byte(text), 0o644)
}
