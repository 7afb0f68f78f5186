package cmds

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/go-go-golems/grillo/pkg/sse"
	"github.com/go-go-golems/grillo/pkg/workflow/api"
)

// NewChatCommand reads lines from stdin and submits each as a chat request,
// while a concurrent subscription prints intermediate progress events.
func NewChatCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive chat with the configured workflow",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}

			sessionID, err := cmd.Flags().GetString("session-id")
			if err != nil {
				return err
			}
			if sessionID == "" {
				sessionID = uuid.New().String()
				log.Info().Str("session_id", sessionID).Msg("generated session id")
			}

			client := s.NewClient()
			ctx := cmd.Context()

			sub := client.Subscribe(ctx, sessionID, sse.Handlers{
				OnOpen: func() {
					log.Debug().Msg("event stream open")
				},
				OnMessage: func(msg api.SocketMessage) {
					fmt.Printf("[%s] %s\n", strings.Join(msg.Types, ","), msg.Message)
				},
				OnError: func(err error) {
					log.Warn().Err(err).Msg("event stream error")
				},
				OnReconnect: func(attempt int) {
					log.Info().Int("attempt", attempt).Msg("reconnecting event stream")
				},
			})
			defer sub.Close()

			eg, ctx := errgroup.WithContext(ctx)
			eg.Go(func() error {
				scanner := bufio.NewScanner(os.Stdin)
				fmt.Print("> ")
				for scanner.Scan() {
					line := strings.TrimSpace(scanner.Text())
					if line == "" {
						fmt.Print("> ")
						continue
					}

					resp, err := client.Converse(ctx, api.Turn{
						SessionID: sessionID,
						Message:   line,
						Mode:      api.ModeChatRequest,
					})
					if err != nil {
						fmt.Printf("error: %s\n", err)
						fmt.Print("> ")
						continue
					}

					fmt.Println(resp.Message)
					for _, screen := range resp.Screens {
						fmt.Printf("screen %s/%s wants %s: %s\n",
							screen.NodeID, screen.Field, screen.Asset.Type, screen.Asset.Message)
					}
					fmt.Print("> ")
				}
				return scanner.Err()
			})

			return eg.Wait()
		},
	}

	cmd.Flags().String("session-id", "", "Session id (generated when empty)")

	return cmd
}
