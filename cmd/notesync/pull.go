package main

import (
	"encoding/json"
	"errors"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/ultramynd/notesync/pkg/client"
)

var (
	pullServer string
	pullToken  string
	pullSince  int64
)

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Download changes from a running server and print them as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		token := pullToken
		if token == "" {
			token = os.Getenv("NOTESYNC_TOKEN")
		}
		if token == "" {
			return errors.New("a token is required (--token or NOTESYNC_TOKEN)")
		}

		c, err := client.New(client.Config{BaseURL: pullServer, Token: token})
		if err != nil {
			return err
		}

		data, err := c.Download(cmd.Context(), pullSince)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), data)
	},
}

func init() {
	pullCmd.Flags().StringVar(&pullServer, "server", "http://localhost:8080", "Server base URL")
	pullCmd.Flags().StringVar(&pullToken, "token", "", "Bearer token (default $NOTESYNC_TOKEN)")
	pullCmd.Flags().Int64Var(&pullSince, "since", 0, "Watermark in Unix milliseconds")
}

// printJSON marshals v to JSON and writes to the given writer.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
