package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cdtdelta/dbhelper/internal/transfer"
)

type fetchOptions struct {
	post     bool
	headers  []string
	jsonBody []string
	data     string
	insecure bool
}

func newFetchCmd(g *globalFlags) *cobra.Command {
	opts := &fetchOptions{}

	cmd := &cobra.Command{
		Use:   "fetch <url>",
		Short: "Send an HTTP request and print the response body",
		Long: `Send a GET (or POST with --post) request and print the response body.
Timeout and TLS verification default to the http section of the config.

Examples:
  dbhelper fetch https://example.com/api/users
  dbhelper fetch https://example.com/api/users --post --json name=bob -H "Authorization=Bearer x"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd, g, opts, args[0])
		},
	}

	cmd.Flags().BoolVar(&opts.post, "post", false, "Send a POST instead of a GET")
	cmd.Flags().StringArrayVarP(&opts.headers, "header", "H", nil, `Request header "Name=value" (repeatable)`)
	cmd.Flags().StringArrayVar(&opts.jsonBody, "json", nil, `JSON body field "key=value" (repeatable)`)
	cmd.Flags().StringVarP(&opts.data, "data", "d", "", "Raw request body")
	cmd.Flags().BoolVarP(&opts.insecure, "insecure", "k", false, "Skip TLS certificate verification")

	return cmd
}

func runFetch(cmd *cobra.Command, g *globalFlags, opts *fetchOptions, url string) error {
	s, err := g.load(cmd)
	if err != nil {
		return err
	}

	client, err := transfer.New(url, s.logger)
	if err != nil {
		return err
	}
	client.SetTimeout(s.cfg.HTTP.Timeout)
	client.VerifyTLS(s.cfg.HTTP.VerifyTLS && !opts.insecure)

	if len(opts.headers) > 0 {
		headers, err := keyValues("--header", opts.headers)
		if err != nil {
			return err
		}
		if err := client.AddHeaders(headers); err != nil {
			return err
		}
	}

	if len(opts.jsonBody) > 0 {
		fields, err := keyValues("--json", opts.jsonBody)
		if err != nil {
			return err
		}
		body := make(map[string]any, len(fields))
		for k, v := range fields {
			body[k] = v
		}
		if err := client.SetJSONBody(body); err != nil {
			return err
		}
	}
	client.SetRequestBody(opts.data)

	send := client.Get
	if opts.post {
		send = client.Post
	}
	body, err := send(cmd.Context())
	if err != nil {
		return err
	}

	s.logger.Info().Int("status", client.ResponseCode()).Int("bytes", len(body)).Msg("response received")
	_, _ = fmt.Fprint(cmd.OutOrStdout(), body)
	return nil
}

// keyValues parses "key=value" flag values.
func keyValues(flag string, items []string) (map[string]string, error) {
	out := make(map[string]string, len(items))
	for _, item := range items {
		k, v, ok := strings.Cut(item, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("%s %q: expected key=value", flag, item)
		}
		out[k] = v
	}
	return out, nil
}
