package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/terraincognita07/mealplans/internal/services"
)

func TestRootCommandTree(t *testing.T) {
	root := newRootCmd()

	for _, name := range []string{"serve", "sweep", "notify", "deliver", "reset-password", "add-dietitian"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Fatalf("expected command %q, got %v (err %v)", name, cmd, err)
		}
	}
}

func TestResetPasswordRequiresEmailFlag(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"reset-password"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})

	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "email") {
		t.Fatalf("expected missing --email error, got %v", err)
	}
}

func TestSweepCommandPrintsJSONSummary(t *testing.T) {
	t.Setenv("REDIS_ADDRESS", "")
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("TZ", "UTC")

	var out bytes.Buffer
	root := newRootCmd()
	root.SetArgs([]string{"sweep", "--json", "--db", filepath.Join(t.TempDir(), "sweep.db")})
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})

	if err := root.Execute(); err != nil {
		t.Fatalf("sweep returned error: %v", err)
	}

	summary := services.SweepSummary{}
	if err := json.Unmarshal(out.Bytes(), &summary); err != nil {
		t.Fatalf("decode sweep output %q: %v", out.String(), err)
	}
	if summary.Found != 0 || summary.Updated != 0 {
		t.Fatalf("expected empty sweep on a fresh database, got %+v", summary)
	}
}

func TestPrintSweepSummaryListsErrors(t *testing.T) {
	var out bytes.Buffer
	printSweepSummary(&out, services.SweepSummary{Found: 2, Updated: 1, Errors: []string{"plan 7: boom"}})

	text := out.String()
	if !strings.Contains(text, "Overdue plans: 2, expired: 1") || !strings.Contains(text, "plan 7: boom") {
		t.Fatalf("unexpected summary output %q", text)
	}
}
