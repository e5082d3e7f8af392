// Package cli implements the colloq command-line interface.
//
// The cli package provides the Cobra-based commands: run scrapes one source and
// publishes its calendar, sources lists the known department profiles, show
// prints the upcoming agenda of a published calendar file, and watch repeats
// run on a cron schedule. It coordinates the config, pipeline, calendar and
// sink packages.
package cli
