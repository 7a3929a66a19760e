/*
Package resilience provides a circuit breaker guarding remote provider
transports.

# Overview

Remote catalog and hosting APIs fail in bursts. The breaker stops hammering
a backend that is clearly down: after enough consecutive failures it opens
and fails fast, then periodically lets a probe request through to detect
recovery.

# Usage

	breaker := resilience.New("github", resilience.Settings{
		Timeout: 30 * time.Second,
		ReadyToTrip: func(c resilience.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
	})

	err := breaker.Do(func() error {
		_, err := client.R().Get(url)
		return err
	})

# States

	Closed --[failures]-> Open --[timeout]-> Half-Open --[success]-> Closed
*/
package resilience
