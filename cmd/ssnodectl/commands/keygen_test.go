package commands_test

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ssnode/cluster/cmd/ssnodectl/commands"
)

// execute runs the root command with args, capturing whatever it wrote to
// stdout via fmt.Printf -- commands print directly rather than through
// cmd.OutOrStdout(), so os.Stdout itself must be redirected.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	orig := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	cmd := commands.GetRootCmd()
	cmd.SetArgs(args)
	runErr := cmd.Execute()

	w.Close()
	out, _ := io.ReadAll(r)
	return string(out), runErr
}

func TestKeygenGeneratesFreshIdentity(t *testing.T) {
	out, err := execute(t, "keygen")
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	if !strings.Contains(out, "node_id_hex:") || !strings.Contains(out, "seed_hex:") {
		t.Errorf("keygen output missing expected fields: %q", out)
	}
}

func TestKeygenRoundTripsSeed(t *testing.T) {
	first, err := execute(t, "keygen")
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	seed := fieldValue(t, first, "seed_hex:")
	wantNodeID := fieldValue(t, first, "node_id_hex:")

	second, err := execute(t, "keygen", "--seed", seed)
	if err != nil {
		t.Fatalf("keygen --seed: %v", err)
	}
	gotNodeID := fieldValue(t, second, "node_id_hex:")

	if gotNodeID != wantNodeID {
		t.Errorf("node_id_hex from --seed = %q, want %q", gotNodeID, wantNodeID)
	}
}

func TestDiagnoseValidatesConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ssnode.yml")
	content := "node:\n  listen_addr: \":7700\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	out, err := execute(t, "diagnose", path)
	if err != nil {
		t.Fatalf("diagnose: %v", err)
	}
	if !strings.Contains(out, ":7700") {
		t.Errorf("diagnose output missing listen addr: %q", out)
	}
}

func TestDiagnoseRejectsMissingFile(t *testing.T) {
	if _, err := execute(t, "diagnose", "/nonexistent/ssnode.yml"); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestMigrationIDCommand(t *testing.T) {
	out, err := execute(t, "migration-id")
	if err != nil {
		t.Fatalf("migration-id: %v", err)
	}
	if !strings.Contains(out, "uuid:") || !strings.Contains(out, "hex:") {
		t.Errorf("migration-id output missing expected fields: %q", out)
	}
}

func fieldValue(t *testing.T, output, field string) string {
	t.Helper()

	for _, line := range strings.Split(output, "\n") {
		if strings.HasPrefix(line, field) {
			return strings.TrimSpace(strings.TrimPrefix(line, field))
		}
	}
	t.Fatalf("field %q not found in output %q", field, output)
	return ""
}
