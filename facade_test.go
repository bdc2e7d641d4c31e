package medvault

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFacade(t *testing.T) *Facade {
	t.Helper()
	sys, _ := newTestSystem(t)
	ctx := context.Background()
	require.NoError(t, setupDoctorAndPatient(t, sys, ctx, 1, 100))
	return NewFacade(sys)
}

func TestFacade_Encrypt_Decrypt_Roundtrip(t *testing.T) {
	f := newTestFacade(t)
	ctx := context.Background()

	encRes := f.Encrypt(ctx, 1, 100, []byte("vitals"), nil)
	require.True(t, encRes.Success)
	require.Nil(t, encRes.Error)
	assert.Equal(t, int64(1), encRes.RecordID)

	decRes := f.Decrypt(ctx, 1, 100, encRes.Blob)
	require.True(t, decRes.Success)
	assert.Equal(t, []byte("vitals"), decRes.Plaintext)
}

func TestFacade_Encrypt_AssignsMonotonicRecordIDs(t *testing.T) {
	f := newTestFacade(t)
	ctx := context.Background()

	first := f.Encrypt(ctx, 1, 100, []byte("a"), nil)
	second := f.Encrypt(ctx, 1, 100, []byte("b"), nil)
	require.True(t, first.Success)
	require.True(t, second.Success)
	assert.Equal(t, first.RecordID+1, second.RecordID)
}

func TestFacade_Decrypt_DeniedForNonOwnerWithoutSession(t *testing.T) {
	f := newTestFacade(t)
	ctx := context.Background()

	encRes := f.Encrypt(ctx, 1, 100, []byte("secret"), nil)
	require.True(t, encRes.Success)

	decRes := f.Decrypt(ctx, 2, 100, encRes.Blob)
	assert.False(t, decRes.Success)
	require.Error(t, decRes.Error)
	assert.True(t, IsAuthError(decRes.Error))
}

func TestFacade_GrantAccess_CheckAccess_RevokeAccess(t *testing.T) {
	f := newTestFacade(t)

	sess, err := f.GrantAccess(2, 100, AccessView)
	require.NoError(t, err)
	assert.True(t, sess.Active)
	assert.True(t, sess.Permissions.ViewPatientInfo)
	assert.False(t, sess.Permissions.EditRecords)

	assert.True(t, f.CheckAccess(sess.SessionID))

	revoked := f.RevokeAccess(sess.SessionID)
	assert.True(t, revoked, "first revoke must succeed")
	assert.False(t, f.CheckAccess(sess.SessionID))

	revokedAgain := f.RevokeAccess(sess.SessionID)
	assert.False(t, revokedAgain, "re-revoking an already-revoked session must be idempotent")
}

func TestFacade_GrantAccess_EnablesDecryptForNonOwner(t *testing.T) {
	f := newTestFacade(t)
	ctx := context.Background()

	encRes := f.Encrypt(ctx, 1, 100, []byte("shared"), nil)
	require.True(t, encRes.Success)

	_, err := f.GrantAccess(2, 100, AccessView)
	require.NoError(t, err)

	decRes := f.Decrypt(ctx, 2, 100, encRes.Blob)
	require.True(t, decRes.Success)
	assert.Equal(t, []byte("shared"), decRes.Plaintext)
}

func TestFacade_CheckAccess_UnknownSessionIsFalse(t *testing.T) {
	f := newTestFacade(t)
	assert.False(t, f.CheckAccess("session_does_not_exist"))
}

func TestFacade_RevokeAccess_UnknownSessionIsFalse(t *testing.T) {
	f := newTestFacade(t)
	assert.False(t, f.RevokeAccess("session_does_not_exist"))
}

func TestFacade_Stats_ReflectsUnderlyingSystem(t *testing.T) {
	f := newTestFacade(t)
	ctx := context.Background()

	encRes := f.Encrypt(ctx, 1, 100, []byte("data"), nil)
	require.True(t, encRes.Success)
	decRes := f.Decrypt(ctx, 1, 100, encRes.Blob)
	require.True(t, decRes.Success)

	stats := f.Stats()
	assert.Equal(t, int64(1), stats.Encryptions)
	assert.Equal(t, int64(1), stats.Decryptions)
}

func TestPermissionMap_MatchesPermissionSetFields(t *testing.T) {
	f := newTestFacade(t)
	sess, err := f.GrantAccess(2, 100, AccessEmergency)
	require.NoError(t, err)

	for name, granted := range sess.Permissions.ToMap() {
		assert.True(t, granted, "expected %s granted under emergency access", name)
	}
}
