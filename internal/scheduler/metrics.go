package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TasksCreatedTotal counts successful task creations, by kind/strategy.
	TasksCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arbbot_scheduler_tasks_created_total",
			Help: "Total number of tasks successfully created and queued",
		},
		[]string{"kind", "strategy"},
	)

	// TasksRejectedTotal counts create calls rejected, by reason.
	TasksRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arbbot_scheduler_tasks_rejected_total",
			Help: "Total number of task create calls rejected before execution",
		},
		[]string{"reason"},
	)

	// TasksCancelledTotal counts tasks moved to CANCELLED by an explicit
	// Cancel call.
	TasksCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbbot_scheduler_tasks_cancelled_total",
		Help: "Total number of tasks cancelled via an explicit Cancel call",
	})

	// RunningTasksGauge reports the current count of RUNNING tasks.
	RunningTasksGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arbbot_scheduler_running_tasks",
		Help: "Number of tasks currently RUNNING",
	})

	// TaskLogWriteErrorsTotal counts durable-log write failures, by file.
	TaskLogWriteErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arbbot_scheduler_tasklog_write_errors_total",
			Help: "Total number of durable task-log write failures",
		},
		[]string{"file"},
	)
)
