// Package mqtt connects the fire alarm designer to an MQTT broker.
//
// The designer publishes the result of every committed change:
//   - a retained load summary per circuit
//   - a retained addressing report per circuit
//   - a design event (run, move, resequence, ...) for each change
//
// and accepts commands on graylogic/firealarm/{site}/command/+.
//
// A retained LWT on the site status topic lets other services see when the
// designer goes away.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, mqtt.Topics{Site: cfg.Site.ID})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.PublishJSON(client.Topics().CircuitSummary(id), summary, true)
package mqtt
