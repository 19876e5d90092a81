package tasks

// TaskSchedulerInterface is what the HTTP layer and main depend on.
//
//	scheduler := NewScheduler(pipeline.NewTask, interval)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(pipeline.NewTask(TriggerManual))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

// RunStatusInterface reports the outcome of the most recent pipeline run.
type RunStatusInterface interface {
	LastRun() (RunStatus, bool)
}
