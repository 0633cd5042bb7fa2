package config

const (
	// TopicImportTask is the NSQ topic carrying one job record to reconcile.
	TopicImportTask = "import.task"

	// ChannelReconciler is the consumer channel for the reconciler pool.
	ChannelReconciler = "reconciler"
)
