package mqtt

import "fmt"

// TopicPrefix is the root of every fire alarm designer topic.
//
// Topics are scoped per site: graylogic/firealarm/{site}/{category}/...
const TopicPrefix = "graylogic/firealarm"

// Topics builds topic names for one site.
//
//	topics := mqtt.Topics{Site: "site-001"}
//	topics.CircuitSummary("PNL-01-IDNAC-02")
//	// Returns: "graylogic/firealarm/site-001/circuit/PNL-01-IDNAC-02/summary"
type Topics struct {
	Site string
}

func (t Topics) base() string {
	if t.Site == "" {
		return TopicPrefix
	}
	return fmt.Sprintf("%s/%s", TopicPrefix, t.Site)
}

// Status returns the designer online/offline topic. It carries the LWT.
//
// Example: graylogic/firealarm/site-001/status
func (t Topics) Status() string {
	return t.base() + "/status"
}

// CircuitSummary returns the retained load summary topic for a circuit.
//
// Example: graylogic/firealarm/site-001/circuit/PNL-01-IDNAC-02/summary
// A circuitID of "+" subscribes to every circuit.
func (t Topics) CircuitSummary(circuitID string) string {
	return fmt.Sprintf("%s/circuit/%s/summary", t.base(), circuitID)
}

// CircuitIssues returns the retained addressing report topic for a circuit.
//
// Example: graylogic/firealarm/site-001/circuit/PNL-01-IDNAC-02/issues
func (t Topics) CircuitIssues(circuitID string) string {
	return fmt.Sprintf("%s/circuit/%s/issues", t.base(), circuitID)
}

// DesignEvent returns the topic for design change events.
//
// Example: graylogic/firealarm/site-001/event/design_run
func (t Topics) DesignEvent(eventType string) string {
	return fmt.Sprintf("%s/event/%s", t.base(), eventType)
}

// Command returns the topic on which the designer accepts a command.
//
// Example: graylogic/firealarm/site-001/command/run
func (t Topics) Command(name string) string {
	return fmt.Sprintf("%s/command/%s", t.base(), name)
}
