// cmd/tools/registry-check/main.go
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"fitcheck-workers/pkg/registry"
)

// wiredTaskTypes are the job workers started by cmd/fitcheck.
var wiredTaskTypes = []string{"recommend-shoes", "generate-outfits", "generate-videos", "search-products"}

func main() {
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	validatePath := validateCmd.String("path", "configs/activity-registry.json", "Path to registry file")

	checkCmd := flag.NewFlagSet("check", flag.ExitOnError)
	checkPath := checkCmd.String("path", "configs/activity-registry.json", "Path to registry file")
	taskType := checkCmd.String("taskType", "", "Task type whose input schema applies (e.g., generate-outfits)")
	varsFile := checkCmd.String("vars", "-", "Job variables JSON file, - for stdin")

	listCmd := flag.NewFlagSet("list", flag.ExitOnError)
	listPath := listCmd.String("path", "configs/activity-registry.json", "Path to registry file")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "validate":
		validateCmd.Parse(os.Args[2:])
		if err := validate(*validatePath); err != nil {
			fmt.Printf("Registry validation failed: %v\n", err)
			os.Exit(1)
		}

	case "check":
		checkCmd.Parse(os.Args[2:])
		if *taskType == "" {
			fmt.Println("Error: taskType is required for check.")
			checkCmd.Usage()
			os.Exit(1)
		}
		if err := check(*checkPath, *taskType, *varsFile); err != nil {
			fmt.Printf("Variables rejected: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Variables accepted by %s.\n", *taskType)

	case "list":
		listCmd.Parse(os.Args[2:])
		if err := list(*listPath); err != nil {
			fmt.Printf("Error listing registry: %v\n", err)
			os.Exit(1)
		}

	case "help":
		fallthrough
	default:
		help()
	}
}

func validate(path string) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	if err := reg.Validate(); err != nil {
		return err
	}
	if missing := reg.Missing(wiredTaskTypes); len(missing) > 0 {
		return fmt.Errorf("workers without registry entry: %s", strings.Join(missing, ", "))
	}
	fmt.Printf("Registry validation passed. Found %d activities.\n", len(reg.Activities))
	return nil
}

func check(path, taskType, varsFile string) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	activity, ok := reg.Find(taskType)
	if !ok {
		return fmt.Errorf("no activity for task type %s", taskType)
	}
	schema, err := activity.CompileInput()
	if err != nil {
		return err
	}
	if schema == nil {
		return nil
	}

	var data []byte
	if varsFile == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(varsFile)
	}
	if err != nil {
		return fmt.Errorf("failed to read variables: %w", err)
	}
	return registry.CheckVariables(schema, string(data))
}

func list(path string) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	for _, a := range reg.Activities {
		fmt.Printf("%-20s %-10s timeout=%-6s retries=%d  %s\n", a.TaskType, a.ImplementationStatus, a.Timeout, a.Retries, a.DisplayName)
	}
	return nil
}

func help() {
	fmt.Print(`
Usage: registry-check <command> [flags]

Commands:
  validate  Validate the registry file and confirm every worker has an entry
  check     Validate job variables against a task type's input schema
  list      List registered activities
  help      Show this help message

Examples:
  registry-check validate -path configs/activity-registry.json
  echo '{"imageId":"abc.jpg","recommendations":[{"name":"Samba","brand":"Adidas"}]}' | registry-check check -taskType generate-outfits
  registry-check list

Use 'registry-check <command> -h' for more information about a command.
`)
}
