package main

import (
	"log/slog"

	"dev.acmcsuf.com/pixeld"
)

// openStatusIndicator opens the status LED given by the flags. Without one,
// or if it cannot be opened, the heartbeat is only logged.
func openStatusIndicator(logger *slog.Logger) (pixeld.StatusIndicator, func()) {
	if statusPin >= 0 {
		status, err := openGPIOStatus(statusChip, statusPin)
		if err == nil {
			logger.Info(
				"blinking status LED",
				"chip", statusChip,
				"pin", statusPin)

			return status, func() {
				if err := status.Close(); err != nil {
					logger.Warn(
						"failed to release status LED",
						"error", err)
				}
			}
		}

		logger.Warn(
			"status LED unavailable, logging heartbeat instead",
			"error", err)
	}

	return logStatus(logger), func() {}
}

func logStatus(logger *slog.Logger) pixeld.StatusIndicator {
	var on bool
	return pixeld.StatusIndicatorFunc(func() error {
		on = !on
		logger.Debug("heartbeat", "on", on)
		return nil
	})
}
