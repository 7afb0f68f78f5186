package cmds

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/grillo/pkg/workflow/api"
)

// NewUploadCommand uploads a file, text snippet or table to its configured
// upload cache and prints the resulting asset id.
func NewUploadCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload an asset and print its id",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "file <path>",
		Short: "Upload a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}

			content, err := os.ReadFile(args[0])
			if err != nil {
				return errors.Wrapf(err, "could not read %s", args[0])
			}

			result, err := s.NewClient().UploadFile(cmd.Context(), content)
			if err != nil {
				return err
			}
			printResult(result)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "text <content>",
		Short: "Upload a text snippet",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}

			result, err := s.NewClient().UploadText(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			printResult(result)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "table <path>",
		Short: "Upload tabular data from a JSON file of row objects",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}

			content, err := os.ReadFile(args[0])
			if err != nil {
				return errors.Wrapf(err, "could not read %s", args[0])
			}

			var rows []map[string]any
			if err := json.Unmarshal(content, &rows); err != nil {
				return errors.Wrapf(err, "could not parse rows from %s", args[0])
			}

			result, err := s.NewClient().UploadTable(cmd.Context(), rows)
			if err != nil {
				return err
			}
			printResult(result)
			return nil
		},
	})

	return cmd
}

func printResult(result *api.UploadResult) {
	fmt.Printf("assetId: %s\n", result.AssetID)
	if result.ExecutionID != "" {
		fmt.Printf("workflowExecutionId: %s\n", result.ExecutionID)
	}
}
