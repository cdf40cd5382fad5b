package schedule

import (
	"bytes"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
)

// LoadJobsFromStore reads the job file without arming anything, for offline listing.
func LoadJobsFromStore(path string) ([]JobView, error) {
	jobs, err := ReadJobs(path)
	if err != nil {
		return nil, err
	}
	out := make([]JobView, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, JobView{Job: j})
	}
	return out, nil
}

// FormatJobList renders jobs as an aligned table.
func FormatJobList(jobs []JobView, now time.Time) string {
	if len(jobs) == 0 {
		return "No scheduled jobs.\n"
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tANCHOR\tFREQUENCY\tSTATUS\tNEXT RUN")
	for _, j := range jobs {
		name := j.Name
		if name == "" {
			name = "-"
		}
		next := "-"
		if j.NextRun != nil {
			next = fmt.Sprintf("%s (%s)", j.NextRun.Format("2006-01-02 15:04"), humanize.RelTime(*j.NextRun, now, "ago", "from now"))
		}
		status := string(j.Status)
		if j.Status == StatusError && j.LastError != "" {
			status += ": " + j.LastError
		}
		fmt.Fprintf(w, "%s\t%s\t%s %s\t%s\t%s\t%s\n", j.ID, name, j.Date, j.Time, j.Frequency, status, next)
	}
	_ = w.Flush()
	return buf.String()
}
