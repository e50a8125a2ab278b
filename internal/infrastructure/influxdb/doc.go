// Package influxdb records the load history of a fire alarm design.
//
// Every committed change writes one circuit_load point per circuit and one
// design_run point, tagged with the site. This gives a timeline of how close
// each circuit sits to its derated limits as the design evolves.
//
// The integration is optional: Connect returns ErrDisabled when
// influxdb.enabled is false and the designer runs without it.
//
// Usage:
//
//	client, err := influxdb.Connect(cfg.InfluxDB, cfg.Site.ID)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // run without history
//	}
//	defer client.Close()
package influxdb
