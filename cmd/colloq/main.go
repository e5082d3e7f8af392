// Command colloq publishes department colloquium schedules as iCalendar feeds.
package main

import "github.com/Cornell-CIS-Slack/cucs-colloq/internal/cli"

func main() {
	cli.Execute()
}
