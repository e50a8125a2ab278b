// Package design orchestrates a fire alarm circuit design.
//
// A Service owns one design: an assignment store plus the capacity and
// addressing engines. Run computes a fresh design from a device snapshot;
// the edit methods change it one step at a time.
//
// # Edits
//
// Every edit follows the same shape:
//
//  1. Open a store transaction over the committed design
//  2. Validate the request against the current state
//  3. Mutate copies and register them with the transaction
//  4. Commit, or roll back on a rejected outcome or an error
//
// Business-rule failures (a move that would overload a circuit, a release of a
// locked address) come back as a Result whose Outcome carries the issues and
// whose Committed flag is false. Errors are reserved for faults such as an
// unknown element or a malformed device record.
//
//	res, err := svc.MoveDevice(ctx, 42, "PNL-01-IDNAC-03")
//	if err != nil {
//	    return err
//	}
//	if !res.Committed {
//	    log.Println(res.Outcome.Reason())
//	}
//
// # Collaborators
//
// After each commit the service saves the design through an optional
// assignment.Repository, publishes a Change through an optional Publisher
// (MQTTPublisher), records loads through an optional LoadRecorder
// (InfluxRecorder) and updates optional Metrics. None of these can fail an
// edit; their errors are logged.
//
// # Thread Safety
//
// All Service methods are safe for concurrent use. Calls are serialised.
package design
