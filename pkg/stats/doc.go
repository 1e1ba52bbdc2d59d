// Package stats aggregates the delivery log into delivery statistics:
// totals and rates overall, per channel and per template, optionally
// restricted to a time window, a recipient, a template or a channel.
//
// Example:
//
//	collector, err := stats.NewCollector(logStore)
//	if err != nil {
//		return err
//	}
//
//	report, err := collector.Collect(ctx,
//		stats.WithWindow(time.Now().Add(-24*time.Hour), time.Now()),
//		stats.WithChannel(notify.ChannelEmail),
//	)
package stats
