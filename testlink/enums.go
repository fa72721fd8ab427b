package testlink

// ExecutionType tells the server whether a test case or step is executed
// manually or by automation.
type ExecutionType int

const (
	ExecutionManual    ExecutionType = 1
	ExecutionAutomated ExecutionType = 2
)

func (t *ExecutionType) UnmarshalJSON(data []byte) error {
	var id ID
	if err := id.UnmarshalJSON(data); err != nil {
		return err
	}
	*t = ExecutionType(id)
	return nil
}

// Importance is the importance level of a test case.
type Importance int

const (
	ImportanceLow    Importance = 1
	ImportanceMedium Importance = 2
	ImportanceHigh   Importance = 3
)

func (i *Importance) UnmarshalJSON(data []byte) error {
	var id ID
	if err := id.UnmarshalJSON(data); err != nil {
		return err
	}
	*i = Importance(id)
	return nil
}

// DuplicateAction tells the server what to do when a created test case's name
// collides with an existing case in the same suite.
type DuplicateAction string

const (
	DuplicateBlock            DuplicateAction = "block"
	DuplicateGenerateNew      DuplicateAction = "generate_new"
	DuplicateCreateNewVersion DuplicateAction = "create_newversion"
)

// ExecutionStatus is the outcome of a test execution as recorded by
// ReportResult.
type ExecutionStatus string

const (
	StatusPassed  ExecutionStatus = "p"
	StatusFailed  ExecutionStatus = "f"
	StatusBlocked ExecutionStatus = "b"
)

// ResponseDetails selects how much detail the server includes in some query
// responses.
type ResponseDetails string

const (
	DetailsSimple ResponseDetails = "simple"
	DetailsFull   ResponseDetails = "full"
	DetailsValue  ResponseDetails = "value"
)
