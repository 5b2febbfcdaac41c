package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var serverURL string

func main() {
	root := &cobra.Command{
		Use:   "codesmarty",
		Short: "CLI client for the code-smarty analysis server",
	}

	root.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")

	root.AddCommand(&cobra.Command{
		Use:   "analyze [code]",
		Short: "Analyze a code snippet (reads stdin when no argument)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runAnalyze,
	})

	root.AddCommand(&cobra.Command{
		Use:   "analyze-file [file]",
		Short: "Analyze a source file",
		Args:  cobra.ExactArgs(1),
		RunE:  runAnalyzeFile,
	})

	root.AddCommand(&cobra.Command{
		Use:   "analyze-repo [url]",
		Short: "Analyze every source file of a repository",
		Args:  cobra.ExactArgs(1),
		RunE:  runAnalyzeRepo,
	})

	root.AddCommand(&cobra.Command{
		Use:   "history",
		Short: "List recent analyses from the audit log",
		RunE:  runHistory,
	})

	root.AddCommand(&cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE:  runHealth,
	})

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runAnalyze(_ *cobra.Command, args []string) error {
	var code string

	if len(args) > 0 {
		code = args[0]
	} else {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		code = string(data)
	}

	return postAndPrint("/analyze", map[string]any{"code": code}, 3*time.Minute)
}

func runAnalyzeFile(_ *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}
	return postAndPrint("/analyze", map[string]any{"code": string(data)}, 3*time.Minute)
}

func runAnalyzeRepo(_ *cobra.Command, args []string) error {
	// Repository analyses fan out over many files; give them room.
	return postAndPrint("/analyze_repo", map[string]any{"repo_url": args[0]}, 15*time.Minute)
}

func postAndPrint(path string, payload map[string]any, timeout time.Duration) error {
	body, _ := json.Marshal(payload)

	req, err := http.NewRequest("POST", serverURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var result any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	formatted, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(formatted))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %s", resp.Status)
	}
	return nil
}

func runHistory(_ *cobra.Command, _ []string) error {
	resp, err := http.Get(serverURL + "/analyses")
	if err != nil {
		return fmt.Errorf("history request failed: %w", err)
	}
	defer resp.Body.Close()

	var result any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	formatted, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(formatted))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %s", resp.Status)
	}
	return nil
}

func runHealth(_ *cobra.Command, _ []string) error {
	resp, err := http.Get(serverURL + "/health")
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	var result map[string]any
	json.NewDecoder(resp.Body).Decode(&result)
	formatted, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(formatted))
	return nil
}
