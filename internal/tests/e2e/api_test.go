//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/rojanatorn/apiserver/config"
	"github.com/rojanatorn/apiserver/internal/db"
	"github.com/rojanatorn/apiserver/internal/server"
)

const serverPort = 18080

func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	root, err := repoRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to locate repo root: %v\n", err)
		os.Exit(1)
	}

	if err := dockerCompose(ctx, root, "up", "-d"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start docker compose: %v\n", err)
		os.Exit(1)
	}

	setEnv()

	if err := waitForPostgres(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "postgres not ready: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	if err := runMigrations(root); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run migrations: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	srv, err := startServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	if err := waitForHealth(ctx, baseURL+"/api/health"); err != nil {
		fmt.Fprintf(os.Stderr, "server not healthy: %v\n", err)
		shutdown(srv)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	code := m.Run()

	shutdown(srv)
	_ = dockerCompose(context.Background(), root, "down")
	os.Exit(code)
}

func TestBackOfficeLifecycle(t *testing.T) {
	baseURL := fmt.Sprintf("http://localhost:%d/api", serverPort)

	// Bootstrap the first admin. The directory is in-memory per server
	// start, so the endpoint is open exactly once per run.
	var boot struct {
		Token string `json:"token"`
		Role  string `json:"role"`
	}
	status, err := postJSON(baseURL+"/users", "", map[string]string{
		"email":    "owner@example.com",
		"password": "longenough1",
	}, &boot)
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if status != http.StatusCreated || boot.Token == "" || boot.Role != "admin" {
		t.Fatalf("unexpected bootstrap result: status %d, %+v", status, boot)
	}

	// The SQL probe must see the migrated database.
	if err := expectStatus(baseURL+"/health/sql", "", http.StatusOK); err != nil {
		t.Fatalf("sql health: %v", err)
	}

	// Invite, accept, and log in as a member.
	var invite struct {
		Token string `json:"token"`
	}
	status, err = postJSON(baseURL+"/users/invite", boot.Token, map[string]any{
		"email":         "alice@example.com",
		"role":          "member",
		"expiresInDays": 3,
	}, &invite)
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	if status != http.StatusCreated || invite.Token == "" {
		t.Fatalf("unexpected invite result: status %d", status)
	}

	var accepted struct {
		Token string `json:"token"`
		Role  string `json:"role"`
	}
	status, err = postJSON(baseURL+"/users/invite/accept", "", map[string]string{
		"token":    invite.Token,
		"password": "longenough1",
	}, &accepted)
	if err != nil {
		t.Fatalf("accept invite: %v", err)
	}
	if status != http.StatusOK || accepted.Role != "member" {
		t.Fatalf("unexpected accept result: status %d, role %q", status, accepted.Role)
	}

	// Customer CRUD with a note and a linked manufacturing project.
	var customer struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Notes string `json:"notes"`
	}
	status, err = postJSON(baseURL+"/customers", accepted.Token, map[string]string{
		"name": "Lady Whitmore",
	}, &customer)
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}
	if status != http.StatusCreated || customer.ID == "" {
		t.Fatalf("unexpected customer result: status %d, %+v", status, customer)
	}

	status, err = postJSON(baseURL+"/customers/"+customer.ID+"/notes", accepted.Token, map[string]string{
		"note": "prefers emeralds",
	}, &customer)
	if err != nil {
		t.Fatalf("append note: %v", err)
	}
	if status != http.StatusOK || !strings.Contains(customer.Notes, "prefers emeralds") {
		t.Fatalf("unexpected note result: status %d, notes %q", status, customer.Notes)
	}

	var project struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
	}
	status, err = postJSON(baseURL+"/manufacturing", accepted.Token, map[string]any{
		"manufacturingCode": fmt.Sprintf("MC-%d", time.Now().UnixNano()),
		"pieceName":         "Emerald pendant",
		"pieceType":         "pendant",
		"customerId":        customer.ID,
	}, &project)
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	if status != http.StatusCreated || project.Status != "approved" {
		t.Fatalf("unexpected project result: status %d, %+v", status, project)
	}

	// Advance the pipeline and verify an activity record appears.
	var updated struct {
		Status   string `json:"status"`
		Activity []struct {
			Status string  `json:"status"`
			Note   *string `json:"note"`
		} `json:"activity"`
	}
	status, err = putJSON(fmt.Sprintf("%s/manufacturing/%d", baseURL, project.ID), accepted.Token, map[string]string{
		"status":       "sent_to_craftsman",
		"activityNote": "handed off Monday",
	}, &updated)
	if err != nil {
		t.Fatalf("update project: %v", err)
	}
	if status != http.StatusOK || updated.Status != "sent_to_craftsman" {
		t.Fatalf("unexpected update result: status %d, %+v", status, updated)
	}
	if len(updated.Activity) < 2 {
		t.Fatalf("expected activity log entries, got %d", len(updated.Activity))
	}

	// The customer's activity feed reflects the linked project.
	var activity []struct {
		Status string `json:"status"`
	}
	if err := getJSON(baseURL+"/customers/"+customer.ID+"/activity", accepted.Token, &activity); err != nil {
		t.Fatalf("customer activity: %v", err)
	}
	if len(activity) != 1 || activity[0].Status != "sent_to_craftsman" {
		t.Fatalf("unexpected customer activity: %+v", activity)
	}

	// List endpoints answer the uniform paging envelope on an empty
	// inventory.
	var gemstones struct {
		Items      []json.RawMessage `json:"items"`
		TotalCount int               `json:"totalCount"`
		Limit      int               `json:"limit"`
	}
	if err := getJSON(baseURL+"/inventory/gemstones?limit=500", accepted.Token, &gemstones); err != nil {
		t.Fatalf("list gemstones: %v", err)
	}
	if gemstones.Limit != 200 {
		t.Fatalf("expected limit clamped to 200, got %d", gemstones.Limit)
	}
	if len(gemstones.Items) != gemstones.TotalCount && gemstones.TotalCount < 200 {
		t.Fatalf("page/total mismatch: %d items, total %d", len(gemstones.Items), gemstones.TotalCount)
	}

	// Authenticated-only surface rejects anonymous calls.
	if err := expectStatus(baseURL+"/analytics", "", http.StatusUnauthorized); err != nil {
		t.Fatalf("anonymous analytics: %v", err)
	}

	// Sell the project and check the revenue rollup picks it up.
	status, err = putJSON(fmt.Sprintf("%s/manufacturing/%d", baseURL, project.ID), accepted.Token, map[string]any{
		"status":       "sold",
		"sellingPrice": 1250.0,
	}, &updated)
	if err != nil || status != http.StatusOK {
		t.Fatalf("sell project: status %d, err %v", status, err)
	}
	var report struct {
		Manufacturing struct {
			TotalProjects int            `json:"totalProjects"`
			ByStatus      map[string]int `json:"byStatus"`
			SoldCount     int            `json:"soldCount"`
			SoldRevenue   float64        `json:"soldRevenue"`
		} `json:"manufacturing"`
	}
	if err := getJSON(baseURL+"/analytics", accepted.Token, &report); err != nil {
		t.Fatalf("analytics: %v", err)
	}
	if report.Manufacturing.SoldCount != 1 || report.Manufacturing.SoldRevenue != 1250.0 {
		t.Fatalf("unexpected sold rollup: %+v", report.Manufacturing)
	}
	if report.Manufacturing.ByStatus["sold"] != 1 {
		t.Fatalf("unexpected status breakdown: %+v", report.Manufacturing.ByStatus)
	}
}

func postJSON(url, token string, payload, out any) (int, error) {
	return sendJSON(http.MethodPost, url, token, payload, out)
}

func putJSON(url, token string, payload, out any) (int, error) {
	return sendJSON(http.MethodPut, url, token, payload, out)
}

func sendJSON(method, url, token string, payload, out any) (int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		msg, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}

func getJSON(url, token string, out any) error {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func expectStatus(url, token string, want int) error {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != want {
		return fmt.Errorf("expected %d, got %d", want, resp.StatusCode)
	}
	return nil
}

func setEnv() {
	_ = os.Setenv("JWT_SECRET", "test-secret")
	_ = os.Setenv("SERVER_PORT", fmt.Sprintf("%d", serverPort))
	_ = os.Setenv("DB_HOST", "localhost")
	_ = os.Setenv("DB_PORT", "5432")
	_ = os.Setenv("DB_USER", "atelier")
	_ = os.Setenv("DB_PASSWORD", "password")
	_ = os.Setenv("DB_NAME", "atelier_db")
	_ = os.Setenv("DB_SSL", "false")
	// No REDIS_ADDR: exercise the in-memory directory fallback.
	_ = os.Setenv("REDIS_ADDR", "")
}

func waitForPostgres(ctx context.Context) error {
	cfg := config.LoadConfig()
	conn, err := sql.Open("postgres", db.PostgresURL(cfg))
	if err != nil {
		return err
	}
	defer conn.Close()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := conn.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("postgres ping timeout: %w", err)
		case <-ticker.C:
		}
	}
}

func waitForHealth(ctx context.Context, url string) error {
	client := &http.Client{Timeout: 2 * time.Second}
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			return fmt.Errorf("health check failed with status")
		case <-ticker.C:
		}
	}
}

func runMigrations(root string) error {
	cfg := config.LoadConfig()
	migrationsURL := "file://" + filepath.Join(root, "internal", "db", "migrations")

	migrator, err := migrate.New(migrationsURL, db.PostgresURL(cfg))
	if err != nil {
		return err
	}
	defer func() {
		_, _ = migrator.Close()
	}()

	if err := migrator.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func startServer() (*server.Server, error) {
	cfg := config.LoadConfig()
	srv, err := server.New(context.Background(), cfg, zap.NewNop())
	if err != nil {
		return nil, err
	}

	go func() {
		_ = srv.Start()
	}()

	return srv, nil
}

func shutdown(srv *server.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}

func dockerCompose(ctx context.Context, root string, args ...string) error {
	composeFile := filepath.Join(root, "docker-compose.yml")
	baseArgs := append([]string{"compose", "-f", composeFile}, args...)
	cmd := exec.CommandContext(ctx, "docker", baseArgs...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found")
		}
		dir = parent
	}
}
