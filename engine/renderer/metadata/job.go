package metadata

/** Definition for jobs. Output is written to out before returning. */
type JobStart func(params interface{}, out chan<- interface{}) error

/** Definition for completion of a job. */
type JobOnComplete func(result interface{})

/**
 * @brief Describes a job to be run.
 */
type JobTask struct {
	/** @brief Invoked when the job starts. Required. */
	OnStart JobStart
	/** @brief Invoked with the job output when OnStart succeeds. Optional. */
	OnComplete JobOnComplete
	/** @brief Invoked with the job error when OnStart fails. Optional. */
	OnFailure JobOnComplete
	/** @brief Invoked after OnComplete or OnFailure. Optional. */
	OnCompletionCallback func()
	/** @brief Data to be passed to the entry point upon execution. */
	InputParams interface{}
}
