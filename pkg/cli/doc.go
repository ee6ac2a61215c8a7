/*
Package cli provides command-line helpers used by the warden command.

Output Formatting:

Command results are printed as JSON (the default for machine consumers) or
as a short text rendering for operators:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, response); err != nil {
		return err
	}

Values implementing Texter control their own text rendering.

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx, stop := cli.SetupSignalHandler()
	defer stop()
*/
package cli
