package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	space "github.com/pricingops/space-go"
)

var (
	serverURL string
	apiKey    string
	timeout   time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "spacectl",
		Short: "spacectl - CLI for the SPACE pricing platform",
		Long:  "Query contracts, evaluate features and manage pricings on a SPACE instance",
	}

	rootCmd.PersistentFlags().StringVar(&serverURL, "url", envOr("SPACE_URL", "http://localhost:5403"), "SPACE platform URL")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", os.Getenv("SPACE_API_KEY"), "API key")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "request timeout")

	rootCmd.AddCommand(
		pingCmd(),
		contractCmd(),
		evaluateCmd(),
		tokenCmd(),
		servicesCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newClient() (*space.Client, error) {
	cfg := space.DefaultConfig()
	cfg.URL = serverURL
	cfg.APIKey = apiKey
	cfg.Timeout = timeout
	return space.New(cfg)
}

func pingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check platform connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			defer client.Close()
			if err := client.Ping(context.Background()); err != nil {
				return err
			}
			fmt.Println("ok")
			return nil
		},
	}
}

func contractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contract",
		Short: "Contract operations",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "get <user-id>",
		Short: "Fetch a user's contract",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			defer client.Close()
			contract, err := client.GetContract(context.Background(), args[0])
			if err != nil {
				return err
			}
			return printJSON(contract)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "add <contract.json>",
		Short: "Create a contract from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var contract space.Contract
			if err := json.Unmarshal(data, &contract); err != nil {
				return fmt.Errorf("parse contract: %w", err)
			}
			client, err := newClient()
			if err != nil {
				return err
			}
			defer client.Close()
			created, err := client.AddContract(context.Background(), &contract)
			if err != nil {
				return err
			}
			return printJSON(created)
		},
	})
	return cmd
}

func evaluateCmd() *cobra.Command {
	var consumption map[string]string
	cmd := &cobra.Command{
		Use:   "evaluate <user-id> <feature-id>",
		Short: "Evaluate feature access for a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			defer client.Close()

			expected := make(map[string]float64, len(consumption))
			for k, v := range consumption {
				var f float64
				if _, err := fmt.Sscanf(v, "%g", &f); err != nil {
					return fmt.Errorf("invalid consumption %s=%s", k, v)
				}
				expected[k] = f
			}

			var eval *space.FeatureEvaluation
			if len(expected) > 0 {
				eval, err = client.EvaluateFeatureWithConsumption(context.Background(), args[0], args[1], expected)
			} else {
				eval, err = client.EvaluateFeature(context.Background(), args[0], args[1])
			}
			if err != nil {
				return err
			}
			return printJSON(eval)
		},
	}
	cmd.Flags().StringToStringVar(&consumption, "consume", nil, "expected consumption, e.g. --consume apiCalls=1")
	return cmd
}

func tokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token <user-id>",
		Short: "Generate a pricing token for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			defer client.Close()
			token, err := client.GeneratePricingToken(context.Background(), args[0])
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
}

func servicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "services",
		Short: "List registered services and their pricings",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			defer client.Close()
			services, err := client.ListServices(context.Background())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tACTIVE PRICING\tVERSIONS")
			for _, svc := range services {
				fmt.Fprintf(w, "%s\t%s\t%d\n", svc.Name, svc.ActivePricing, len(svc.PricingVersions))
			}
			return w.Flush()
		},
	}
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
