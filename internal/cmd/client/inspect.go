package client

import (
	"encoding/json"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

// NewStatsCommand constructs the `stats` command.
func NewStatsCommand(baseURL BaseURLFunc) *cobra.Command {
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show live session stats and counters",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var data struct {
				Session   string `json:"session"`
				StartedAt string `json:"startedAt"`
				Counters  struct {
					Received  uint64 `json:"received"`
					Enqueued  uint64 `json:"enqueued"`
					Delivered uint64 `json:"delivered"`
					Dropped   uint64 `json:"dropped"`
					Buffered  uint64 `json:"buffered"`
				} `json:"counters"`
				Messages  int   `json:"messages"`
				TreeNodes int64 `json:"treeNodes"`
			}
			if err := getJSON(baseURL, "/v1/stats", nil, &data); err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(data)
		},
	}
	return statsCmd
}

// NewTreeCommand constructs the `tree` command.
func NewTreeCommand(baseURL BaseURLFunc) *cobra.Command {
	treeCmd := &cobra.Command{
		Use:   "tree",
		Short: "Show the topic tree built from the live session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var data json.RawMessage
			if err := getJSON(baseURL, "/v1/tree", nil, &data); err != nil {
				return err
			}
			var pretty any
			if err := json.Unmarshal(data, &pretty); err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(pretty)
		},
	}
	return treeCmd
}

// NewMessagesCommand constructs the `messages` command.
func NewMessagesCommand(baseURL BaseURLFunc) *cobra.Command {
	messagesCmd := &cobra.Command{
		Use:   "messages",
		Short: "List recent messages from the live store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			filter, _ := cmd.Flags().GetString("filter")

			q := url.Values{}
			if limit > 0 {
				q.Set("limit", strconv.Itoa(limit))
			}
			if filter != "" {
				q.Set("filter", filter)
			}
			var data struct {
				Messages []wireMessage `json:"messages"`
				Count    int           `json:"count"`
			}
			if err := getJSON(baseURL, "/v1/messages", q, &data); err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, m := range data.Messages {
				_ = enc.Encode(decodedMessage(m.Topic, m.Payload, m.QoS, m.Retained, m.ReceivedAt))
			}
			return nil
		},
	}
	messagesCmd.Flags().Int("limit", 100, "Max messages to return")
	messagesCmd.Flags().String("filter", "", "CEL filter (server-side)")
	return messagesCmd
}
