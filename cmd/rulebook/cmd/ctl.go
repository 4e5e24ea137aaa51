package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/solatis/rulebook/internal/core/api"
	"github.com/solatis/rulebook/internal/interchange"
	"github.com/solatis/rulebook/internal/rules"
)

var ctlCmd = &cobra.Command{
	Use:   "ctl <op> [args-json]",
	Short: "Send a command to a running editor",
	Long: `Send a command to a running editor and print the resulting state.

<op> is a store command (for example addRule, selectRuleSet, moveRule) with
its arguments as a JSON object, or one of:
  state                 print the current state
  import <file>         replace the rulesets with a JSON array from file
  export [format]       print the rulesets (json, yaml, document)`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runCtl,
}

func init() {
	rootCmd.AddCommand(ctlCmd)
	ctlCmd.Flags().String("addr", "", "editor address (default server.host:server.port)")
}

func runCtl(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = cfg.Server.Address()
	}

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Server.RequestTimeout)
	defer cancel()

	client := api.NewClient(conn)
	out := cmd.OutOrStdout()
	op := args[0]

	switch op {
	case "state":
		view, err := client.GetState(ctx)
		if err != nil {
			return err
		}
		return printJSON(out, view)

	case "import":
		if len(args) != 2 {
			return fmt.Errorf("import requires a file")
		}
		text, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[1], err)
		}
		view, err := client.Import(ctx, string(text))
		if err != nil {
			return err
		}
		return printJSON(out, view)

	case "export":
		format := interchange.FormatJSON
		if len(args) == 2 {
			if format, err = interchange.ParseFormat(args[1]); err != nil {
				return err
			}
		}
		text, err := client.Export(ctx, format)
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(out, text)
		return err
	}

	var dispatchArgs any
	if len(args) == 2 {
		if !json.Valid([]byte(args[1])) {
			return fmt.Errorf("args must be valid JSON (commands: %v)", rules.CommandNames())
		}
		dispatchArgs = json.RawMessage(args[1])
	}
	view, err := client.Dispatch(ctx, op, dispatchArgs)
	if err != nil {
		return err
	}
	return printJSON(out, view)
}
