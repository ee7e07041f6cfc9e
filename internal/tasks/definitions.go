package tasks

// DefineTasks registers all available tasks
func DefineTasks() {
	// Register general tasks
	RegisterHandler(LogInfoTask.TaskID(), LogInfoTask.HandleExecution)

	// Register billing tasks
	RegisterHandler(GenerateRecurringInvoicesTask.TaskID(), GenerateRecurringInvoicesTask.HandleExecution)
	RegisterHandler(ProcessSubscriptionRenewalsTask.TaskID(), ProcessSubscriptionRenewalsTask.HandleExecution)

	// Register notification tasks
	RegisterHandler(SendNotificationTask.TaskID(), SendNotificationTask.HandleExecution)
}
