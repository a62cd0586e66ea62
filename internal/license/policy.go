package license

// Policy constants shared by the issuer and the validator. Earlier iterations
// of this system had the defaults scattered across call sites; they live here
// so both components agree and tests can pin them.
const (
	// DefaultMaxDevices is the device quota applied at issuance when the
	// caller does not supply one.
	DefaultMaxDevices = 3

	// LegacyMaxDevices is the quota assumed during validation for records
	// that predate the maxDevices field.
	LegacyMaxDevices = 1

	// DefaultDaysValid is the validity period the issuing CLI applies when
	// no duration is given.
	DefaultDaysValid = 365
)
