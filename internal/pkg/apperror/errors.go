package apperror

import "google.golang.org/grpc/codes"

var (
	ErrNotFound = New(codes.NotFound, "not_found", "Not found.")

	ErrUnauthenticated   = New(codes.Unauthenticated, "unauthenticated", "Authentication credentials were not provided.")
	ErrInvalidToken      = New(codes.Unauthenticated, "invalid_token", "Invalid token.")
	ErrPermissionDenied  = New(codes.PermissionDenied, "permission_denied", "You do not have permission to perform this action.")
	ErrInvalidCredential = New(codes.InvalidArgument, "invalid_credentials", "Invalid credentials")
	ErrInvalidResetLink  = New(codes.InvalidArgument, "invalid_reset_link", "Invalid reset link or expired.")
	ErrPasswordRequired  = New(codes.InvalidArgument, "new_password_required", "New password is required.")
	ErrWrongPassword     = New(codes.InvalidArgument, "wrong_old_password", "Old password is incorrect.")

	ErrUserNotFound          = New(codes.NotFound, "user_not_found", "User not found.")
	ErrPaymentMethodNotFound = New(codes.NotFound, "payment_method_not_found", "Payment method not found.")

	ErrCategoryNotFound         = New(codes.NotFound, "category_not_found", "Category not found.")
	ErrCategoryHasChildren      = New(codes.FailedPrecondition, "category_has_children", "Cannot delete a category with subcategories.")
	ErrCategoryInUse            = New(codes.FailedPrecondition, "category_in_use", "Cannot delete a category that has advertisements.")
	ErrCategorySelfParent       = New(codes.InvalidArgument, "category_self_parent", "A category cannot be its own parent.")
	ErrCategoryCycle            = New(codes.InvalidArgument, "category_cycle", "Circular reference detected.")
	ErrRelationExists           = New(codes.InvalidArgument, "category_relation_exists", "Relationship already exists")
	ErrCategoryRelationNotFound = New(codes.NotFound, "category_relation_not_found", "Category relation not found.")

	ErrAdvertisementNotFound = New(codes.NotFound, "advertisement_not_found", "Advertisement not found.")
	ErrPhotoNotFound         = New(codes.NotFound, "photo_not_found", "Photo not found.")
	ErrOwnAdvertReview       = New(codes.PermissionDenied, "own_advert_review", "You cannot review your own advertisement.")

	ErrPackageNotFound      = New(codes.NotFound, "package_not_found", "Subscription package not found.")
	ErrPackageInUse         = New(codes.FailedPrecondition, "package_in_use", "Cannot delete a package that has subscriptions.")
	ErrSubscriptionNotFound = New(codes.NotFound, "subscription_not_found", "Subscription not found.")
	ErrSubscriptionInactive = New(codes.FailedPrecondition, "subscription_inactive", "Subscription is not active.")
	ErrAlreadyFeatured      = New(codes.AlreadyExists, "already_featured", "Advertisement is already featured on this subscription.")
	ErrPaymentNotFound      = New(codes.NotFound, "payment_not_found", "Payment not found.")
	ErrPaymentInitiation    = New(codes.Unavailable, "payment_initiation_failed", "Mpesa payment initiation failed")
	ErrPaymentStatusQuery   = New(codes.Unavailable, "payment_status_failed", "Could not query payment status.")
	ErrBusy                 = New(codes.Aborted, "system_busy", "System busy, please try again later.")
	ErrInvalidCallbackToken = New(codes.PermissionDenied, "invalid_callback_token", "Invalid callback token.")
	ErrMalformedCallback    = New(codes.InvalidArgument, "malformed_callback", "Invalid callback payload.")

	ErrMailNotFound    = New(codes.NotFound, "mail_not_found", "Mail not found.")
	ErrMailAlreadySent = New(codes.FailedPrecondition, "mail_already_sent", "Mail has already been sent")

	ErrFileNotFound = New(codes.NotFound, "file_not_found", "File not found.")
)
