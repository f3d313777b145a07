// Command snapshot-tool inspects, validates, migrates, and archives saved
// state snapshots.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"canvascore/internal/config"
	"canvascore/internal/core"
	"canvascore/internal/migrate"
	"canvascore/pkg/domain"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

const usage = `usage: snapshot-tool <command> [arguments]

commands:
  inspect <file>            print snapshot schema version and summary
  validate <file>           check that a snapshot decodes and migrates cleanly
  migrate <file> [-o file]  rewrite a snapshot at the current schema version
  export [-config file]     archive the persisted snapshot to blob storage
`

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}
	var err error
	switch args[0] {
	case "inspect":
		err = inspect(args[1:], stdout)
	case "validate":
		err = validate(args[1:], stdout)
	case "migrate":
		err = migrateFile(args[1:], stdout)
	case "export":
		err = export(args[1:], stdout)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n%s", args[0], usage)
		return 2
	}
	if err != nil {
		fmt.Fprintf(stderr, "snapshot-tool: %v\n", err)
		return 1
	}
	return 0
}

func inspect(args []string, stdout io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("inspect expects exactly one file")
	}
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	var doc struct {
		SchemaVersion int `json:"schema_version"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	snap, err := migrate.Load(raw)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "schema_version: %d (current %d)\n", doc.SchemaVersion, domain.CurrentSchemaVersion)
	fmt.Fprintf(stdout, "saved_at:       %s\n", snap.SavedAt.UTC().Format("2006-01-02T15:04:05Z07:00"))
	fmt.Fprintf(stdout, "components:     %d (%d roots)\n", len(snap.State.Components.Map), len(snap.State.Components.Roots))
	fmt.Fprintf(stdout, "panels:         %d\n", len(snap.State.Panels))
	fmt.Fprintf(stdout, "project:        %s\n", snap.State.Project.Name)
	return nil
}

func validate(args []string, stdout io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("validate expects exactly one file")
	}
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	snap, err := migrate.Load(raw)
	if err != nil {
		return err
	}
	if err := checkTree(snap.State); err != nil {
		return err
	}
	fmt.Fprintln(stdout, "ok")
	return nil
}

// checkTree verifies the component tree's structural invariants: every
// reference resolves, parent and children pointers agree, and every node is
// reachable from the roots exactly once.
func checkTree(state domain.AppState) error {
	nodes := state.Components.Map
	seen := make(map[string]bool, len(nodes))
	var walk func(id string, parent *string) error
	walk = func(id string, parent *string) error {
		node, ok := nodes[id]
		if !ok {
			return fmt.Errorf("component %q referenced but not present", id)
		}
		if seen[id] {
			return fmt.Errorf("component %q reachable through more than one parent", id)
		}
		seen[id] = true
		switch {
		case parent == nil && node.ParentID != nil:
			return fmt.Errorf("root component %q has parent_id %q", id, *node.ParentID)
		case parent != nil && (node.ParentID == nil || *node.ParentID != *parent):
			return fmt.Errorf("component %q parent_id disagrees with tree position", id)
		}
		for _, child := range node.Children {
			if err := walk(child, &id); err != nil {
				return err
			}
		}
		return nil
	}
	for _, id := range state.Components.Roots {
		if err := walk(id, nil); err != nil {
			return err
		}
	}
	if len(seen) != len(nodes) {
		for id := range nodes {
			if !seen[id] {
				return fmt.Errorf("component %q not reachable from any root", id)
			}
		}
	}
	for _, id := range state.Selection.IDs {
		if _, ok := nodes[id]; !ok {
			return fmt.Errorf("selection references missing component %q", id)
		}
	}
	return nil
}

func migrateFile(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	out := fs.String("o", "", "output file (default: overwrite input)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("migrate expects exactly one file")
	}
	in := fs.Arg(0)
	raw, err := os.ReadFile(in)
	if err != nil {
		return err
	}
	snap, err := migrate.Load(raw)
	if err != nil {
		return err
	}
	encoded, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	target := *out
	if target == "" {
		target = in
	}
	if err := os.WriteFile(target, append(encoded, '\n'), 0o644); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %s at schema version %d\n", target, snap.SchemaVersion)
	return nil
}

func export(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "config file (TOML)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	ctx := context.Background()
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	snaps, err := cfg.OpenSnapshotStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = snaps.Close() }()
	raw, ok, err := snaps.Load(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no persisted snapshot to export")
	}
	snap, err := migrate.Load(raw)
	if err != nil {
		return err
	}
	bs, err := cfg.OpenBlobStore(ctx)
	if err != nil {
		return err
	}
	if bs == nil {
		return fmt.Errorf("no blob driver configured")
	}
	key, err := core.NewSnapshotArchive(bs, cfg.Blob.Prefix, nil).Export(ctx, snap)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "archived %s\n", key)
	return nil
}
