// Package domain holds the messages exchanged with the external run manager
// and the site-location types shared by the geocoding adapters.
//
// # Jobs
//
// A [Job] asks the run manager to simulate one model file against one weather
// file. Jobs are produced by the parametric driver, one per variant, and are
// dispatched either as Kafka messages (JSON value, job ID as key) or as a YAML
// manifest in the working directory. Job IDs are random UUIDs; the variant
// name is unique within a study and doubles as the run directory name, so
// results can be joined back to the parameter value that produced them.
//
// # Sites
//
// A [Site] is located either by explicit coordinates or by a free-text place
// query resolved through a [Geocoder]. Explicit coordinates always win.
package domain
