package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"pnl/internal/amqp"
	"pnl/internal/core"
)

func newSubmitCmd(opts *options) *cobra.Command {
	var (
		rng       rangeFlags
		kind      string
		grouping  string
		dimension string
		by        string
		values    []string
	)
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Queue a report request for pnl-worker",
		Long: `Submit publishes a report request on AMQP_QUEUE. A running pnl-worker computes
it and publishes the result on AMQP_RESULT_QUEUE under the same request id.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.requireCompany(); err != nil {
				return err
			}
			from, to, err := rng.parse()
			if err != nil {
				return err
			}
			dim, err := parseDimension(dimension)
			if err != nil {
				return err
			}
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if !cfg.AMQPEnabled() {
				return fmt.Errorf("AMQP_URL is not set")
			}

			msg := amqp.NewReportRequestMessage(amqp.ReportKind(kind), opts.company, from, to)
			msg.Grouping = core.Grouping(grouping)
			if dim != nil {
				msg.Dimension = &amqp.DimensionFilter{Key: dim.Key, Value: dim.Value}
			}
			msg.CompareBy = by
			msg.Values = values
			if err := msg.Validate(); err != nil {
				return err
			}

			ctx, cancel := opts.context(cmd)
			defer cancel()

			client, err := amqp.NewClient(amqp.Config{
				URL:          cfg.AMQPURL,
				Exchange:     cfg.AMQPExchange,
				RequestQueue: cfg.AMQPQueue,
				ResultQueue:  cfg.AMQPResultQueue,
			})
			if err != nil {
				return err
			}
			defer client.Close()

			if err := client.PublishReportRequest(ctx, msg); err != nil {
				return err
			}
			return opts.emit(cmd.OutOrStdout(), msg, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "queued %s request %s\n", msg.Kind, msg.RequestID)
				return err
			})
		},
	}
	rng.register(cmd)
	cmd.Flags().StringVar(&kind, "kind", string(amqp.KindPeriod), "Report kind: period, grid or compare")
	cmd.Flags().StringVar(&grouping, "grouping", "", "Grid slicing: day, week or month")
	cmd.Flags().StringVar(&dimension, "dimension", "", "Narrow facts by key=value")
	cmd.Flags().StringVar(&by, "by", "", "Dimension key for compare")
	cmd.Flags().StringSliceVar(&values, "values", nil, "Dimension values for compare")
	return cmd
}
