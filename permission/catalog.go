package permission

// Permission names understood by the access evaluator.
const (
	PatientList     = "patient:list"
	PatientRead     = "patient:read"
	PatientUpdate   = "patient:update"
	PatientAssign   = "patient:assign"
	PatientClinical = "patient:clinical"
	RecordList      = "record:list"
	RecordRead      = "record:read"
	RecordCreate    = "record:create"
	RecordUpdate    = "record:update"
	RecordDelete    = "record:delete"
	RecordShare     = "record:share"
	RecordAttach    = "record:attach"
	UserManage      = "user:manage"
	UserDirectory   = "user:directory"
)

// All lists every permission in registration order.
var All = []string{
	PatientList,
	PatientRead,
	PatientUpdate,
	PatientAssign,
	PatientClinical,
	RecordList,
	RecordRead,
	RecordCreate,
	RecordUpdate,
	RecordDelete,
	RecordShare,
	RecordAttach,
	UserManage,
	UserDirectory,
}

// DefaultRoles is the built-in role table. Admin holds the root bit.
var DefaultRoles = map[string][]string{
	"admin": {Root},
	"doctor": {
		PatientList, PatientRead, PatientUpdate, PatientClinical,
		RecordList, RecordRead, RecordCreate, RecordUpdate, RecordDelete, RecordShare, RecordAttach,
		UserDirectory,
	},
	"patient": {PatientRead, RecordRead},
}

// Build registers perms and roles and freezes both.
func Build(perms []string, roles map[string][]string) (*RoleManager, error) {
	registry := NewRegistry()
	for _, p := range perms {
		if _, err := registry.Register(p); err != nil {
			return nil, err
		}
	}
	registry.Freeze()

	rm := NewRoleManager(registry)
	for name, list := range roles {
		if err := rm.RegisterRole(name, list); err != nil {
			return nil, err
		}
	}
	rm.Freeze()
	return rm, nil
}
