package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	baseURL string
	timeout time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ledger-cli",
		Short: "Ledger CLI tool",
		Long:  `A command line interface for interacting with the ledger API.`,
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the ledger API")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")

	var date string

	ratesCmd := &cobra.Command{
		Use:   "rates",
		Short: "Show the exchange rate table for a date",
		Run: func(cmd *cobra.Command, args []string) {
			showRates(date)
		},
	}
	ratesCmd.Flags().StringVar(&date, "date", "", "Rate date (YYYY-MM-DD, default today)")

	convertCmd := &cobra.Command{
		Use:   "convert <amount> <from> <to>",
		Short: "Convert an amount between currencies",
		Args:  cobra.ExactArgs(3),
		Run: func(cmd *cobra.Command, args []string) {
			convert(args[0], args[1], args[2], date)
		},
	}
	convertCmd.Flags().StringVar(&date, "date", "", "Rate date (YYYY-MM-DD, default today)")

	reconcileCmd := &cobra.Command{
		Use:   "reconcile <account-id>",
		Short: "Recompute an account's balance from its events",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			reconcile(args[0])
		},
	}

	eventCmd := &cobra.Command{
		Use:   "event <event-id>",
		Short: "Show a financial event",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			showEvent(args[0])
		},
	}

	rootCmd.AddCommand(ratesCmd, convertCmd, reconcileCmd, eventCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func showRates(date string) {
	q := url.Values{}
	if date != "" {
		q.Set("date", date)
	}

	apiGet("/api/v1/rates", q)
}

func convert(amount, from, to, date string) {
	q := url.Values{}
	q.Set("amount", amount)
	q.Set("from", from)
	q.Set("to", to)

	if date != "" {
		q.Set("date", date)
	}

	apiGet("/api/v1/convert", q)
}

func reconcile(accountID string) {
	apiGet("/api/v1/accounts/"+accountID+"/reconciliation", nil)
}

func showEvent(eventID string) {
	apiGet("/api/v1/events/"+eventID, nil)
}

// apiGet performs a GET against the API and pretty-prints the JSON
// response. Non-2xx responses exit non-zero.
func apiGet(path string, query url.Values) {
	target := baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	client := &http.Client{Timeout: timeout}
	resp, err := client.Get(target)
	if err != nil {
		fmt.Printf("Error making request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		fmt.Printf("Request FAILED (Status: %d)\nResponse: %s\n", resp.StatusCode, string(body))
		os.Exit(1)
	}

	var result any
	if err := json.Unmarshal(body, &result); err != nil {
		fmt.Printf("Failed to parse response: %v\n", err)
		os.Exit(1)
	}

	printJSON(result)
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("Failed to render response: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(string(out))
}
