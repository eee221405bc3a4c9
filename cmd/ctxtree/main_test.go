package main_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	appTypes "github.com/tyemirov/ctxtree/internal/types"
)

const (
	integrationBinaryBaseName     = "ctxtree_integration_test_binary"
	commandDirectoryRelativePath  = "cmd/ctxtree"
	gitignoreFileName             = ".gitignore"
	gitignoreContent              = "build/\n"
	vendorDirectoryName           = "vendor"
	vendorFileCount               = 1000
	packagesDirectoryName         = "packages"
	packageDirectoryCount         = 200
	visibleFileContent            = "visible"
	expectedHeavyVendorLabel      = "vendor/ [1000 entries truncated]"
	expectedSmartPlaceholderLabel = "items truncated with"
)

// buildBinary compiles the ctxtree binary and returns its path.
func buildBinary(testingHandle *testing.T) string {
	testingHandle.Helper()

	temporaryDirectory := testingHandle.TempDir()
	binaryName := integrationBinaryBaseName
	if runtime.GOOS == "windows" {
		binaryName += ".exe"
	}
	binaryPath := filepath.Join(temporaryDirectory, binaryName)

	moduleRootDirectory := getModuleRoot(testingHandle)
	commandDirectory := filepath.Join(moduleRootDirectory, commandDirectoryRelativePath)
	buildCommand := exec.Command("go", "build", "-o", binaryPath, ".")
	buildCommand.Dir = commandDirectory

	combinedOutput, buildError := buildCommand.CombinedOutput()
	if buildError != nil {
		testingHandle.Fatalf("build failed in %s: %v\n%s", commandDirectory, buildError, string(combinedOutput))
	}

	return binaryPath
}

// runCommand executes the binary with arguments and returns stdout.
func runCommand(testingHandle *testing.T, binaryPath string, arguments []string, workingDirectory string) string {
	testingHandle.Helper()

	command := exec.Command(binaryPath, arguments...)
	command.Dir = workingDirectory
	command.Env = append(os.Environ(), "HOME="+testingHandle.TempDir())

	var stdoutBuffer, stderrBuffer bytes.Buffer
	command.Stdout = &stdoutBuffer
	command.Stderr = &stderrBuffer

	runError := command.Run()

	stdout := stdoutBuffer.String()
	stderr := stderrBuffer.String()

	if runError != nil {
		if exitError, ok := runError.(*exec.ExitError); ok {
			testingHandle.Fatalf("command failed (%d): %v\nstdout:\n%s\nstderr:\n%s",
				exitError.ExitCode(), runError, stdout, stderr)
		}
		testingHandle.Fatalf("command failed: %v\nstdout:\n%s\nstderr:\n%s", runError, stdout, stderr)
	}

	return stdout
}

// runCommandExpectError runs the binary expecting a failure and returns combined output.
func runCommandExpectError(testingHandle *testing.T, binaryPath string, arguments []string, workingDirectory string) string {
	testingHandle.Helper()

	command := exec.Command(binaryPath, arguments...)
	command.Dir = workingDirectory
	command.Env = append(os.Environ(), "HOME="+testingHandle.TempDir())

	var buffer bytes.Buffer
	command.Stdout = &buffer
	command.Stderr = &buffer

	runError := command.Run()
	output := buffer.String()

	if runError == nil {
		testingHandle.Fatalf("command succeeded unexpectedly\noutput:\n%s", output)
	}

	return output
}

// setupTestDirectory creates a temporary directory populated with the provided layout.
func setupTestDirectory(testingHandle *testing.T, layout map[string]string) string {
	testingHandle.Helper()

	root := testingHandle.TempDir()

	for relativePath, content := range layout {
		absolutePath := filepath.Join(root, relativePath)

		if strings.HasSuffix(relativePath, "/") {
			_ = os.MkdirAll(absolutePath, 0o755)
			continue
		}

		_ = os.MkdirAll(filepath.Dir(absolutePath), 0o755)
		_ = os.WriteFile(absolutePath, []byte(content), 0o644)
	}

	return root
}

// setupHeavyVendorFixture creates src/a.ts, src/b.ts and a vendor directory
// holding vendorFileCount files, one of them vendor/keep.ts.
func setupHeavyVendorFixture(testingHandle *testing.T) string {
	layout := map[string]string{
		"src/a.ts":        visibleFileContent,
		"src/b.ts":        visibleFileContent,
		gitignoreFileName: gitignoreContent,
		"build/output.js": visibleFileContent,
		"vendor/keep.ts":  visibleFileContent,
	}
	for index := 0; index < vendorFileCount-1; index++ {
		layout[filepath.Join(vendorDirectoryName, fmt.Sprintf("lib%04d.js", index))] = visibleFileContent
	}
	return setupTestDirectory(testingHandle, layout)
}

// setupManyPackagesFixture creates apps/packages with packageDirectoryCount
// small package directories.
func setupManyPackagesFixture(testingHandle *testing.T) string {
	layout := map[string]string{"README.md": visibleFileContent}
	for index := 0; index < packageDirectoryCount; index++ {
		layout[filepath.Join("apps", packagesDirectoryName, fmt.Sprintf("pkg%03d", index), "index.ts")] = visibleFileContent
	}
	return setupTestDirectory(testingHandle, layout)
}

// getModuleRoot returns the repository root directory.
func getModuleRoot(testingHandle *testing.T) string {
	testingHandle.Helper()

	directory, err := os.Getwd()
	if err != nil {
		testingHandle.Fatalf("failed to determine working directory: %v", err)
	}

	for {
		goMod := filepath.Join(directory, "go.mod")
		if _, statErr := os.Stat(goMod); statErr == nil {
			return directory
		}

		parent := filepath.Dir(directory)
		if parent == directory {
			testingHandle.Fatalf("could not locate go.mod from %s", directory)
		}
		directory = parent
	}
}

// TestCTXTree verifies the ctxtree CLI across diverse scenarios.
func TestCTXTree(testingHandle *testing.T) {
	if testing.Short() {
		testingHandle.Skip("builds the binary")
	}
	binary := buildBinary(testingHandle)

	testingHandle.Run("heavy vendor collapses and gitignore applies", func(testingHandle *testing.T) {
		root := setupHeavyVendorFixture(testingHandle)
		output := runCommand(testingHandle, binary, []string{"tree", "."}, root)
		if !strings.Contains(output, expectedHeavyVendorLabel) {
			testingHandle.Fatalf("expected %q in output:\n%s", expectedHeavyVendorLabel, output)
		}
		if strings.Contains(output, "build") {
			testingHandle.Fatalf("expected gitignored build directory to be hidden:\n%s", output)
		}
		if !strings.Contains(output, "├─ src\n│  ├─ a.ts\n│  └─ b.ts\n") {
			testingHandle.Fatalf("expected src to be expanded:\n%s", output)
		}
	})

	testingHandle.Run("selection inside vendor stays visible", func(testingHandle *testing.T) {
		root := setupHeavyVendorFixture(testingHandle)
		output := runCommand(testingHandle, binary, []string{"tree", "--mode", "directory", "--select", "vendor/keep.ts", "--format", "json", "."}, root)
		var document appTypes.SummaryDocument
		if decodeError := json.Unmarshal([]byte(output), &document); decodeError != nil {
			testingHandle.Fatalf("invalid JSON: %v\n%s", decodeError, output)
		}
		if !strings.Contains(document.ASCII, "keep.ts") {
			testingHandle.Fatalf("expected keep.ts in tree:\n%s", document.ASCII)
		}
		if !strings.Contains(document.ASCII, expectedSmartPlaceholderLabel) {
			testingHandle.Fatalf("expected a middle placeholder in vendor:\n%s", document.ASCII)
		}
		for _, truncated := range document.TruncatedDirectories {
			if truncated == vendorDirectoryName {
				testingHandle.Fatalf("vendor must not be collapsed when it holds a selection")
			}
		}
	})

	testingHandle.Run("many package directories keep head and tail", func(testingHandle *testing.T) {
		root := setupManyPackagesFixture(testingHandle)
		output := runCommand(testingHandle, binary, []string{"tree", "--max-total", "1000", "--max-children", "50", "--summary=false", "."}, root)
		for _, expected := range []string{"pkg000", "pkg024", "pkg175", "pkg199", "[150 items truncated with 150 entries]"} {
			if !strings.Contains(output, expected) {
				testingHandle.Fatalf("expected %q in output:\n%s", expected, output)
			}
		}
		if strings.Contains(output, "pkg100") {
			testingHandle.Fatalf("expected pkg100 to be hidden:\n%s", output)
		}
	})

	testingHandle.Run("root must be a directory", func(testingHandle *testing.T) {
		root := setupHeavyVendorFixture(testingHandle)
		output := runCommandExpectError(testingHandle, binary, []string{"tree", "src/a.ts"}, root)
		if !strings.Contains(output, "is not a directory") {
			testingHandle.Fatalf("expected root validation error:\n%s", output)
		}
	})
}
