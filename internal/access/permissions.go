package access

// PermissionSet is the typed permission grant attached to a Session,
// mirroring medvault.PermissionSet.
type PermissionSet struct {
	ViewPatientInfo    bool
	ViewMedicalRecords bool
	ViewMeasurements   bool
	ViewPrescriptions  bool
	CreateRecords      bool
	EditRecords        bool
	DeleteRecords      bool
	ExportData         bool
	EmergencyAccess    bool
}

// DefaultPermissions returns the permission defaults for an access type.
func DefaultPermissions(t AccessType) PermissionSet {
	switch t {
	case View:
		return PermissionSet{
			ViewPatientInfo:    true,
			ViewMedicalRecords: true,
			ViewMeasurements:   true,
			ViewPrescriptions:  true,
		}
	case Edit:
		return PermissionSet{
			ViewPatientInfo:    true,
			ViewMedicalRecords: true,
			ViewMeasurements:   true,
			ViewPrescriptions:  true,
			CreateRecords:      true,
			EditRecords:        true,
			ExportData:         true,
		}
	case Emergency:
		return PermissionSet{
			ViewPatientInfo:    true,
			ViewMedicalRecords: true,
			ViewMeasurements:   true,
			ViewPrescriptions:  true,
			CreateRecords:      true,
			EditRecords:        true,
			DeleteRecords:      true,
			ExportData:         true,
			EmergencyAccess:    true,
		}
	default:
		return PermissionSet{}
	}
}

// Has reports whether the named permission is granted.
func (p PermissionSet) Has(name string) bool {
	switch name {
	case "view_patient_info":
		return p.ViewPatientInfo
	case "view_medical_records":
		return p.ViewMedicalRecords
	case "view_measurements":
		return p.ViewMeasurements
	case "view_prescriptions":
		return p.ViewPrescriptions
	case "create_records":
		return p.CreateRecords
	case "edit_records":
		return p.EditRecords
	case "delete_records":
		return p.DeleteRecords
	case "export_data":
		return p.ExportData
	case "emergency_access":
		return p.EmergencyAccess
	default:
		return false
	}
}
