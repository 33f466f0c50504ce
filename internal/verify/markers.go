package verify

import "strings"

// environmentMarkers is the ordered set of build/environment failure
// signatures. Order matters: earlier markers are more specific and their
// label is what the repair prompt and the terminal reason report. Output
// matching none of these is treated as a genuine program execution.
var environmentMarkers = []struct {
	label   string
	markers []string
}{
	{"build failure", []string{
		"build failed",
		"# command-line-arguments",
		"compilation terminated",
		"compilation failed",
		"syntaxerror",
	}},
	{"unresolved symbol", []string{
		"undefined:",
		"undeclared name",
		"cannot find symbol",
		"undefined reference to",
		"is not defined",
		"nameerror",
	}},
	{"unused import", []string{
		"imported and not used",
		"unused import",
	}},
	{"missing dependency", []string{
		"no required module provides",
		"cannot find module",
		"modulenotfounderror",
		"importerror",
		"package does not exist",
	}},
	{"missing package", []string{
		"cannot find package",
		"unknown import path",
	}},
	{"setup failure", []string{
		"command not found",
		"executable file not found",
		"no such file or directory",
		"permission denied",
		"exec format error",
	}},
}

// matchEnvironmentFailure returns the matched marker text, or "" when the
// output looks like a real program run.
func matchEnvironmentFailure(output string) string {
	lower := strings.ToLower(output)
	for _, group := range environmentMarkers {
		for _, marker := range group.markers {
			if strings.Contains(lower, marker) {
				return marker
			}
		}
	}
	return ""
}

// markerLabel names the failure class for logs and terminal reasons.
func markerLabel(marker string, runErr error) string {
	if marker != "" {
		lower := strings.ToLower(marker)
		for _, group := range environmentMarkers {
			for _, m := range group.markers {
				if m == lower {
					return group.label
				}
			}
		}
	}
	if runErr != nil {
		return "setup failure"
	}
	return "environment failure"
}

// sourceExtension returns the PoC file extension for the target language.
func sourceExtension(language string) string {
	switch strings.ToLower(language) {
	case "python":
		return ".py"
	case "javascript":
		return ".js"
	case "java":
		return ".java"
	default:
		return ".go"
	}
}

// executeCommand maps the target language to the host build/execute
// invocation for a single PoC file, run from the target source directory.
// Languages without a single-file launch path (C/C++, C#) return nil; their
// findings are skipped before verification rather than burning the repair
// budget on a toolchain that can never run the artifact.
func executeCommand(language, pocFile string) []string {
	switch strings.ToLower(language) {
	case "go":
		return []string{"go", "run", pocFile}
	case "python":
		return []string{"python3", pocFile}
	case "javascript":
		return []string{"node", pocFile}
	case "java":
		// Single-file source launch, JEP 330.
		return []string{"java", pocFile}
	}
	return nil
}
