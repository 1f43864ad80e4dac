// Package export renders a selection of catalog items into a single
// installable artifact. Rendering is a pure function of the format and
// the ordered item fields; the manifest timestamp is the only value that
// varies between runs and is excluded from content digests upstream.
package export

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"stackhub/internal/models"
)

// Supported output formats.
const (
	FormatShellScript = "shell-script"
	FormatPlaybook    = "config-management-playbook"
)

// shellHeader is the fixed preamble of every shell-script export:
// strict mode, log redirect, error trap, dry-run toggle and a preflight
// capability check.
const shellHeader = `#!/usr/bin/env bash
set -Eeuo pipefail
LOG_FILE="/tmp/stackhub-export.log"; exec > >(tee -a "$LOG_FILE") 2>&1
trap 'echo "[ERROR] at line $LINENO"' ERR
DRYRUN="${DRYRUN:-0}"
_preflight(){ echo "[INFO] Preflight checks..."; command -v bash >/dev/null || { echo "bash missing"; exit 1; }; command -v curl >/dev/null || echo "[WARN] curl not found"; }
_run(){ if [ "$DRYRUN" = "1" ]; then echo "> DRYRUN: $*"; return 0; fi; eval "$@"; }
echo "[INFO] Starting export $(date)"; _preflight
`

// Ext returns the file extension for a format.
func Ext(format string) (string, error) {
	switch format {
	case FormatShellScript:
		return "sh", nil
	case FormatPlaybook:
		return "yml", nil
	default:
		return "", fmt.Errorf("%w: %q", models.ErrUnsupportedFormat, format)
	}
}

// Extensions lists every known artifact extension, used when probing the
// blob store by digest alone.
func Extensions() []string {
	return []string{"sh", "yml"}
}

// Render produces the artifact text for the given format and item order.
// now feeds only the shell manifest's created_at field.
func Render(format string, items []models.Item, now time.Time) (string, error) {
	switch format {
	case FormatShellScript:
		return renderShellScript(items, now), nil
	case FormatPlaybook:
		return renderPlaybook(items), nil
	default:
		return "", fmt.Errorf("%w: %q", models.ErrUnsupportedFormat, format)
	}
}

type manifestItem struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Ports []int  `json:"ports"`
}

type manifest struct {
	CreatedAt string         `json:"created_at"`
	Items     []manifestItem `json:"items"`
}

func renderShellScript(items []models.Item, now time.Time) string {
	man := manifest{
		CreatedAt: now.UTC().Format(time.RFC3339),
		Items:     make([]manifestItem, 0, len(items)),
	}
	for _, it := range items {
		ports := it.Ports
		if ports == nil {
			ports = []int{}
		}
		man.Items = append(man.Items, manifestItem{ID: it.ID, Name: it.Name, Ports: ports})
	}
	manJSON, _ := json.MarshalIndent(man, "", "  ")

	manifestBlock := "# MANIFEST JSON\ncat > /tmp/stackhub.manifest.json <<'JSON'\n" +
		string(manJSON) + "\nJSON\n"

	parts := []string{shellHeader, manifestBlock}
	for _, it := range items {
		parts = append(parts, "### BEGIN: "+it.Name)
		parts = append(parts, strings.TrimSpace(it.ScriptPrimary))
		parts = append(parts, "### END: "+it.Name+"\n")
	}
	parts = append(parts, `echo "[INFO] Export complete"`)
	return strings.Join(parts, "\n")
}

func renderPlaybook(items []models.Item) string {
	var tasks []string
	for _, it := range items {
		lines := strings.Split(it.ScriptPrimary, "\n")
		for i, l := range lines {
			lines[i] = "      " + l
		}
		tasks = append(tasks, "  - name: "+it.Name+"\n    become: true\n    ansible.builtin.shell: |\n"+
			strings.Join(lines, "\n")+"\n")
	}

	return `---
- name: StackHub Monolith Export
  hosts: all
  gather_facts: true
  become: true
  vars: { ansible_python_interpreter: /usr/bin/python3 }
  tasks:
` + strings.Join(tasks, "\n")
}
