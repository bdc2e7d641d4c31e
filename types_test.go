package medvault

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessType_Valid(t *testing.T) {
	tests := []struct {
		name string
		t    AccessType
		want bool
	}{
		{"view is valid", AccessView, true},
		{"edit is valid", AccessEdit, true},
		{"emergency is valid", AccessEmergency, true},
		{"unknown is invalid", AccessType("superuser"), false},
		{"empty is invalid", AccessType(""), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.t.Valid())
		})
	}
}

func TestDefaultPermissions_ViewGrantsOnlyReads(t *testing.T) {
	perms := DefaultPermissions(AccessView)
	assert.True(t, perms.ViewPatientInfo)
	assert.True(t, perms.ViewMedicalRecords)
	assert.False(t, perms.CreateRecords)
	assert.False(t, perms.DeleteRecords)
	assert.False(t, perms.EmergencyAccess)
}

func TestDefaultPermissions_EmergencyGrantsEverything(t *testing.T) {
	perms := DefaultPermissions(AccessEmergency)
	for name, granted := range perms.ToMap() {
		assert.True(t, granted, "expected %s granted under emergency access", name)
	}
}

func TestPermissionSet_ToMap_FromMap_RoundTrip(t *testing.T) {
	original := DefaultPermissions(AccessEdit)
	m := original.ToMap()
	restored := PermissionSetFromMap(m)
	assert.Equal(t, original, restored)
}

func TestPermissionSetFromMap_UnknownKeysIgnored(t *testing.T) {
	m := map[string]bool{"view_patient_info": true, "not_a_real_permission": true}
	perms := PermissionSetFromMap(m)
	assert.True(t, perms.ViewPatientInfo)
	assert.False(t, perms.Has("not_a_real_permission"))
}

func TestMasterKey_KeyID_TruncatesToSixteenBytes(t *testing.T) {
	mk := MasterKey{Secret: make([]byte, 32)}
	assert.Len(t, mk.KeyID(), 32, "16 bytes hex-encoded is 32 characters")
}

func TestMasterKey_KeyID_ShortSecret(t *testing.T) {
	mk := MasterKey{Secret: []byte{0x01, 0x02}}
	assert.Equal(t, "0102", mk.KeyID())
}

func TestEncryptedBlob_ToJSON_FromJSON_RoundTrip(t *testing.T) {
	original := &EncryptedBlob{
		Ciphertext:     []byte{1, 2, 3},
		Nonce:          []byte{4, 5, 6},
		AdditionalData: []byte{7, 8},
		Version:        "1",
		Algorithm:      "AES-256-GCM",
		KeyID:          "key_100_0_deadbeef",
	}

	data, err := original.ToJSON()
	require.NoError(t, err)

	restored, err := BlobFromJSON(data)
	require.NoError(t, err)
	assert.Equal(t, original, restored)
}

func TestBlobFromJSON_RejectsMissingFields(t *testing.T) {
	full := map[string]any{
		"ciphertext":      []byte{1},
		"nonce":           []byte{2},
		"additional_data": []byte{3},
		"version":         "1",
		"algorithm":       "AES-256-GCM",
		"key_id":          "key_1",
	}

	for _, field := range blobRequiredFields {
		t.Run("missing "+field, func(t *testing.T) {
			partial := map[string]any{}
			for k, v := range full {
				if k == field {
					continue
				}
				partial[k] = v
			}
			data, err := json.Marshal(partial)
			require.NoError(t, err)

			_, err = BlobFromJSON(data)
			assert.Error(t, err, "a blob missing %q must be a decode error, not a zero-filled struct", field)
		})
	}
}

func TestBlobFromJSON_RejectsMalformedJSON(t *testing.T) {
	_, err := BlobFromJSON([]byte("not json"))
	assert.Error(t, err)
}

func TestAccessSession_Valid(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		session AccessSession
		want    bool
	}{
		{
			name:    "active and not expired",
			session: AccessSession{Active: true, ExpiresAt: now.Add(time.Hour)},
			want:    true,
		},
		{
			name:    "active but expired",
			session: AccessSession{Active: true, ExpiresAt: now.Add(-time.Hour)},
			want:    false,
		},
		{
			name:    "inactive",
			session: AccessSession{Active: false, ExpiresAt: now.Add(time.Hour)},
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.session.Valid(now))
		})
	}
}
