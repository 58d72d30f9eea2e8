package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

// NewCaptureCommand constructs the `capture` command group.
func NewCaptureCommand(baseURL BaseURLFunc) *cobra.Command {
	captureCmd := &cobra.Command{Use: "capture", Short: "Capture operations"}
	captureCmd.AddCommand(
		newCaptureSessionsCommand(baseURL),
		newCaptureMessagesCommand(baseURL),
		newCapturePurgeCommand(baseURL),
	)
	return captureCmd
}

func newCaptureSessionsCommand(baseURL BaseURLFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List recorded sessions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var data struct {
				Sessions []string `json:"sessions"`
			}
			if err := getJSON(baseURL, "/v1/capture/sessions", nil, &data); err != nil {
				return err
			}
			for _, s := range data.Sessions {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), s)
			}
			return nil
		},
	}
}

func newCaptureMessagesCommand(baseURL BaseURLFunc) *cobra.Command {
	messagesCmd := &cobra.Command{
		Use:   "messages",
		Short: "Read recorded messages from a session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, _ := cmd.Flags().GetString("session")
			start, _ := cmd.Flags().GetInt("start")
			limit, _ := cmd.Flags().GetInt("limit")
			reverse, _ := cmd.Flags().GetBool("reverse")
			filter, _ := cmd.Flags().GetString("filter")

			if session == "" {
				return fmt.Errorf("--session is required")
			}
			q := url.Values{}
			q.Set("session", session)
			if start > 0 {
				q.Set("start", strconv.Itoa(start))
			}
			if limit > 0 {
				q.Set("limit", strconv.Itoa(limit))
			}
			if reverse {
				q.Set("reverse", "true")
			}
			if filter != "" {
				q.Set("filter", filter)
			}
			var data struct {
				Messages []wireMessage `json:"messages"`
				Count    int           `json:"count"`
				Next     uint64        `json:"next"`
			}
			if err := getJSON(baseURL, "/v1/capture/messages", q, &data); err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, m := range data.Messages {
				out := decodedMessage(m.Topic, m.Payload, m.QoS, m.Retained, m.ReceivedAt)
				out["seq"] = m.Seq
				_ = enc.Encode(out)
			}
			if data.Next > 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "next:", data.Next)
			}
			return nil
		},
	}
	messagesCmd.Flags().String("session", "", "Session ID")
	messagesCmd.Flags().Int("start", 0, "Start sequence (from a previous next token)")
	messagesCmd.Flags().Int("limit", 100, "Max messages to return")
	messagesCmd.Flags().Bool("reverse", false, "Read newest-to-oldest")
	messagesCmd.Flags().String("filter", "", "CEL filter (server-side)")
	return messagesCmd
}

func newCapturePurgeCommand(baseURL BaseURLFunc) *cobra.Command {
	purgeCmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete a recorded session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, _ := cmd.Flags().GetString("session")
			confirm, _ := cmd.Flags().GetBool("confirm")
			if session == "" {
				return fmt.Errorf("--session is required")
			}
			if !confirm {
				return fmt.Errorf("use --confirm to purge session %s", session)
			}
			body, _ := json.Marshal(map[string]string{"session": session})
			resp, err := http.Post(baseURL()+"/v1/capture/purge", "application/json", bytes.NewReader(body))
			if err != nil {
				return err
			}
			defer func() { _ = resp.Body.Close() }()
			if resp.StatusCode >= 300 {
				return apiError(resp)
			}
			_, _ = io.Copy(io.Discard, resp.Body)
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "status:", "OK")
			return nil
		},
	}
	purgeCmd.Flags().String("session", "", "Session ID")
	purgeCmd.Flags().Bool("confirm", false, "Confirm the purge operation")
	return purgeCmd
}
