package client

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"
)

// NewTailCommand constructs the `tail` command. It follows the live
// stream over SSE and prints one JSON object per message.
func NewTailCommand(baseURL BaseURLFunc) *cobra.Command {
	tailCmd := &cobra.Command{
		Use:   "tail",
		Short: "Follow the live message stream",
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, _ := cmd.Flags().GetString("filter")
			limit, _ := cmd.Flags().GetInt("limit")

			u := baseURL() + "/v1/tail"
			if filter != "" {
				u += "?filter=" + url.QueryEscape(filter)
			}
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, u, nil)
			if err != nil {
				return err
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return err
			}
			defer func() { _ = resp.Body.Close() }()
			if resp.StatusCode >= 300 {
				return apiError(resp)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			sc := bufio.NewScanner(resp.Body)
			sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
			seen := 0
			for sc.Scan() {
				line := sc.Bytes()
				if !bytes.HasPrefix(line, []byte("data: ")) {
					continue
				}
				var m wireMessage
				if err := json.Unmarshal(line[len("data: "):], &m); err != nil {
					continue
				}
				_ = enc.Encode(decodedMessage(m.Topic, m.Payload, m.QoS, m.Retained, m.ReceivedAt))
				seen++
				if limit > 0 && seen >= limit {
					return nil
				}
			}
			if cmd.Context().Err() != nil {
				return nil
			}
			return sc.Err()
		},
	}
	tailCmd.Flags().String("filter", "", "CEL filter (server-side)")
	tailCmd.Flags().Int("limit", 0, "Stop after N messages (0 = infinite)")
	return tailCmd
}
