package domain

// Department identifies one of the console's administrative areas.
type Department string

const (
	DepartmentHR          Department = "hr"
	DepartmentFinance     Department = "finance"
	DepartmentProcurement Department = "procurement"
	DepartmentOperations  Department = "operations"
	DepartmentIT          Department = "it"
)

// KnownDepartments lists every department the console serves.
var KnownDepartments = []Department{
	DepartmentHR,
	DepartmentFinance,
	DepartmentProcurement,
	DepartmentOperations,
	DepartmentIT,
}

// IsValidDepartment reports whether name matches a known department.
func IsValidDepartment(name string) bool {
	for _, d := range KnownDepartments {
		if string(d) == name {
			return true
		}
	}
	return false
}
