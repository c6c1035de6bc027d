package service

import "errors"

var (
	// ErrDuplicateBooking is returned when a passenger already holds an unresolved booking.
	ErrDuplicateBooking = errors.New("passenger already has an active booking")

	// ErrDriverBusy is returned when the driver already has an incomplete trip.
	ErrDriverBusy = errors.New("driver already has an active trip")

	// ErrAlreadyAccepted is returned when the booking was taken by a driver.
	ErrAlreadyAccepted = errors.New("booking already accepted")

	// ErrNoActiveTrip is returned when the driver has no trip to complete.
	ErrNoActiveTrip = errors.New("driver has no active trip")

	// ErrNoActiveBooking is returned when the passenger has no booking.
	ErrNoActiveBooking = errors.New("passenger has no active booking")

	// ErrBookingNotFound is returned when the booking a driver picked is gone or was replaced.
	ErrBookingNotFound = errors.New("booking not found")

	// ErrUnknownDestination is returned when the destination is not in the fare table.
	ErrUnknownDestination = errors.New("unknown destination")

	// ErrInvalidRating is returned for ratings outside 1 to 5.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")

	// ErrInvalidSurge is returned for surge multipliers outside the allowed range.
	ErrInvalidSurge = errors.New("surge multiplier out of range")

	// ErrInvalidGranularity is returned for report granularities other than daily or monthly.
	ErrInvalidGranularity = errors.New("invalid report granularity")

	// ErrUsernameTaken is returned when registering an existing username.
	ErrUsernameTaken = errors.New("username taken")

	// ErrInvalidCredentials is returned when login fails.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidUsername is returned when a username is empty or contains reserved characters.
	ErrInvalidUsername = errors.New("invalid username")

	// ErrInvalidPassword is returned when a password is empty or too long.
	ErrInvalidPassword = errors.New("invalid password")

	// ErrInvalidPlate is returned when a driver registers without a plate number.
	ErrInvalidPlate = errors.New("invalid plate number")

	// ErrInvalidRole is returned for unknown roles or roles not allowed for the operation.
	ErrInvalidRole = errors.New("invalid role")

	// ErrNotADriver is returned when a driver operation names a non-driver account.
	ErrNotADriver = errors.New("account is not a driver")

	// ErrPersistence wraps ledger or receipt write failures.
	ErrPersistence = errors.New("persistence failure")
)
