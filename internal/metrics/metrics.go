package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Marks counts attendance records written, labeled by derived status.
var Marks = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "rollcall_attendance_marks_total",
	Help: "Attendance records written, by status.",
}, []string{"status"})

// DuplicateMarks counts marking attempts rejected by the once-per-day rule.
var DuplicateMarks = promauto.NewCounter(prometheus.CounterOpts{
	Name: "rollcall_attendance_duplicates_total",
	Help: "Marking attempts rejected as duplicates.",
})
