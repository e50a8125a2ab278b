// Package snapshot reads device snapshots for the circuit designer.
//
// A snapshot is a YAML (or JSON) document with an optional device catalog and
// an ordered device list:
//
//	catalog:
//	  SD-100:
//	    unit_loads: 2
//	devices:
//	  - id: 101
//	    model: SD-100
//	    level: L1
//	    current_draw_a: 0.066
//	    metadata:
//	      candela: "15"
//
// Unit loads and address slots left at zero are derived by
// circuit.NewDeviceRecord, using the catalog where the model is listed.
// Device order is preserved: it drives first-fit circuit grouping.
package snapshot
