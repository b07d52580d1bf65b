/*
Package cli provides helpers shared by the connector-hub commands.

Output Formatting:

Commands print results as text, JSON or CSV. Tables render as aligned
columns in text mode and as rows in CSV mode:

	t := &cli.Table{Header: []string{"PROVIDER", "MODEL"}}
	t.Append("openai", "gpt-4o-mini")
	if err := cli.NewFormatter(cli.FormatText).FormatTo(os.Stdout, t); err != nil {
		return err
	}

Exit Codes:

ExitCode maps configuration errors and hub error kinds to distinct process
exit statuses, so scripts can tell a rejected request from an outage.

Signal Handling:

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()
*/
package cli
