/*
Package metrics provides Prometheus metrics collection and exposition for the
Siodb storage engine (siodb_iomgr).

Metrics are defined and registered at package init and exposed via an HTTP
handler for scraping. Four areas are instrumented: the column block store
(creates, finalizes, digest failures, cache hit/miss), the master-column main
index (lookup outcomes), the database object lifecycle (tables created/dropped,
DROP TABLE rollbacks, CREATE TABLE compound validation failures), and the
instance (permission check outcomes). InstanceStartupDuration and
ActiveClientSessions are registered but not updated by any code in this
module.

# Usage

	timer := metrics.NewTimer()
	// ... append to a column block ...
	timer.ObserveDuration(metrics.BlockWriteDuration)

	http.Handle("/metrics", metrics.Handler())
*/
package metrics
