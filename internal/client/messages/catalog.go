// Package messages holds the user-facing texts of the client in English and
// Vietnamese, and the table that maps known service failure reasons to them.
package messages

import (
	"fmt"
	"strings"
)

type Locale string

const (
	English    Locale = "en"
	Vietnamese Locale = "vi"
)

// ParseLocale accepts "en", "vi" and their regional forms ("vi-VN", "en_US").
func ParseLocale(s string) (Locale, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if i := strings.IndexAny(s, "-_"); i > 0 {
		s = s[:i]
	}
	switch Locale(s) {
	case English, Vietnamese:
		return Locale(s), nil
	case "":
		return English, nil
	default:
		return "", fmt.Errorf("unsupported locale %q", s)
	}
}

type Key string

const (
	UsernameRequired     Key = "username_required"
	UsernameTooShort     Key = "username_too_short"
	PasswordTooShort     Key = "password_too_short"
	NewPasswordTooShort  Key = "new_password_too_short"
	EmailInvalid         Key = "email_invalid"
	PasswordMismatch     Key = "password_mismatch"
	OldPasswordRequired  Key = "old_password_required"
	ResetCodeLength      Key = "reset_code_length"
	ResetCodeDigits      Key = "reset_code_digits"
	SignUpFailed         Key = "signup_failed"
	LoginFailed          Key = "login_failed"
	ChangePasswordFailed Key = "change_password_failed"
	ChangeEmailFailed    Key = "change_email_failed"
	ForgotPasswordFailed Key = "forgot_password_failed"
	ResetPasswordFailed  Key = "reset_password_failed"
	LoginRequired        Key = "login_required"
	SessionExpired       Key = "session_expired"
	ServiceUnavailable   Key = "service_unavailable"
	FileTypeRejected     Key = "file_type_rejected"
	FileTooLarge         Key = "file_too_large"
	FileEmpty            Key = "file_empty"
	NoFileSelected       Key = "no_file_selected"
	JobNotIdle           Key = "job_not_idle"
	JobNotCompleted      Key = "job_not_completed"
	ProcessFailed        Key = "process_failed"
	DownloadFailed       Key = "download_failed"
	HistoryFailed        Key = "history_failed"
	DeleteFailed         Key = "delete_failed"
	NoPendingDelete      Key = "no_pending_delete"
	EntryNotFound        Key = "entry_not_found"
	PasswordChanged      Key = "password_changed"
	EmailChanged         Key = "email_changed"
	ResetCodeSent        Key = "reset_code_sent"
	PasswordReset        Key = "password_reset"
	UserNotFound         Key = "user_not_found"
	BadCredentials       Key = "bad_credentials"
	UsernameTaken        Key = "username_taken"
	EmailTaken           Key = "email_taken"
	WrongOldPassword     Key = "wrong_old_password"
	InvalidResetCode     Key = "invalid_reset_code"
	InvalidToken         Key = "invalid_token"
	UnsupportedFileType  Key = "unsupported_file_type"
	FileMissing          Key = "file_missing"

	AppWelcome        Key = "app_welcome"
	WelcomeUser       Key = "welcome_user"
	LoggedInAs        Key = "logged_in_as"
	LoggedOut         Key = "logged_out"
	SessionValidUntil Key = "session_valid_until"
	Uploading         Key = "uploading"
	SavedTo           Key = "saved_to"
	ReadyForNewFile   Key = "ready_for_new_file"
	ConfirmDelete     Key = "confirm_delete"
	DeleteCancelled   Key = "delete_cancelled"
	FileDeleted       Key = "file_deleted"
)

var texts = map[Locale]map[Key]string{
	English: {
		UsernameRequired:     "Username is required",
		UsernameTooShort:     "Username must be at least 3 characters",
		PasswordTooShort:     "Password must be at least 6 characters",
		NewPasswordTooShort:  "New password must be at least 6 characters",
		EmailInvalid:         "Email address is not valid",
		PasswordMismatch:     "Password confirmation does not match",
		OldPasswordRequired:  "Current password is required",
		ResetCodeLength:      "Reset code must be exactly 6 characters",
		ResetCodeDigits:      "Reset code must contain digits only",
		SignUpFailed:         "Sign up failed",
		LoginFailed:          "Login failed",
		ChangePasswordFailed: "Could not change password",
		ChangeEmailFailed:    "Could not change email",
		ForgotPasswordFailed: "Could not send reset code",
		ResetPasswordFailed:  "Could not reset password",
		LoginRequired:        "Please log in to view your history",
		SessionExpired:       "Your session has expired, please log in again",
		ServiceUnavailable:   "The service is unavailable, try again later",
		FileTypeRejected:     "Please select a PDF or image file (JPG, PNG)",
		FileTooLarge:         "File size must be less than %s",
		FileEmpty:            "The selected file is empty",
		NoFileSelected:       "No file selected",
		JobNotIdle:           "Select a file or start over before submitting",
		JobNotCompleted:      "There is no processed file to download",
		ProcessFailed:        "Failed to process file",
		DownloadFailed:       "Download failed",
		HistoryFailed:        "Failed to fetch history",
		DeleteFailed:         "Failed to delete file",
		NoPendingDelete:      "Nothing to delete",
		EntryNotFound:        "The file is no longer in the list",
		PasswordChanged:      "Password changed successfully",
		EmailChanged:         "Email changed successfully",
		ResetCodeSent:        "A reset code was sent to %s",
		PasswordReset:        "Password has been reset, please log in",
		UserNotFound:         "User not found",
		BadCredentials:       "Incorrect username or password",
		UsernameTaken:        "Username already registered",
		EmailTaken:           "Email already registered",
		WrongOldPassword:     "Incorrect old password",
		InvalidResetCode:     "Invalid or expired reset code",
		InvalidToken:         "Could not validate credentials",
		UnsupportedFileType:  "Only PDF, PNG, JPG and JPEG files are supported",
		FileMissing:          "File does not exist",

		AppWelcome:        "Welcome to ocrdesk (type 'help' for commands)",
		WelcomeUser:       "Welcome, %s!",
		LoggedInAs:        "Logged in as %s",
		LoggedOut:         "Logged out",
		SessionValidUntil: "Session valid until %s",
		Uploading:         "Uploading... %d%%",
		SavedTo:           "Saved to %s",
		ReadyForNewFile:   "Ready for a new file",
		ConfirmDelete:     "Delete %s?",
		DeleteCancelled:   "Cancelled",
		FileDeleted:       "Deleted %s",
	},
	Vietnamese: {
		UsernameRequired:     "Vui lòng nhập tên đăng nhập",
		UsernameTooShort:     "Tên đăng nhập phải có ít nhất 3 ký tự",
		PasswordTooShort:     "Mật khẩu phải có ít nhất 6 ký tự",
		NewPasswordTooShort:  "Mật khẩu mới phải có ít nhất 6 ký tự",
		EmailInvalid:         "Email không hợp lệ",
		PasswordMismatch:     "Mật khẩu xác nhận không khớp",
		OldPasswordRequired:  "Vui lòng nhập mật khẩu hiện tại",
		ResetCodeLength:      "Mã khôi phục phải có đúng 6 ký tự",
		ResetCodeDigits:      "Mã khôi phục chỉ được chứa chữ số",
		SignUpFailed:         "Đăng ký thất bại",
		LoginFailed:          "Đăng nhập thất bại",
		ChangePasswordFailed: "Đổi mật khẩu thất bại",
		ChangeEmailFailed:    "Đổi email thất bại",
		ForgotPasswordFailed: "Không thể gửi mã khôi phục",
		ResetPasswordFailed:  "Đặt lại mật khẩu thất bại",
		LoginRequired:        "Vui lòng đăng nhập để xem lịch sử",
		SessionExpired:       "Phiên đăng nhập đã hết hạn, vui lòng đăng nhập lại",
		ServiceUnavailable:   "Dịch vụ không khả dụng, vui lòng thử lại sau",
		FileTypeRejected:     "Vui lòng chọn file PDF hoặc ảnh (JPG, PNG)",
		FileTooLarge:         "Kích thước file phải nhỏ hơn %s",
		FileEmpty:            "File đã chọn trống",
		NoFileSelected:       "Chưa chọn file",
		JobNotIdle:           "Hãy chọn file hoặc bắt đầu lại trước khi gửi",
		JobNotCompleted:      "Không có file đã xử lý để tải xuống",
		ProcessFailed:        "Xử lý file thất bại",
		DownloadFailed:       "Tải xuống thất bại",
		HistoryFailed:        "Không thể tải lịch sử",
		DeleteFailed:         "Xóa file thất bại",
		NoPendingDelete:      "Không có file nào để xóa",
		EntryNotFound:        "File không còn trong danh sách",
		PasswordChanged:      "Đổi mật khẩu thành công!",
		EmailChanged:         "Đổi email thành công!",
		ResetCodeSent:        "Mã khôi phục đã được gửi đến %s",
		PasswordReset:        "Mật khẩu đã được đặt lại thành công!",
		UserNotFound:         "Không tìm thấy người dùng",
		BadCredentials:       "Tên đăng nhập hoặc mật khẩu không đúng",
		UsernameTaken:        "Tên đăng nhập đã tồn tại",
		EmailTaken:           "Email đã được sử dụng",
		WrongOldPassword:     "Mật khẩu cũ không đúng",
		InvalidResetCode:     "Mã khôi phục không hợp lệ hoặc đã hết hạn",
		InvalidToken:         "Không thể xác thực thông tin đăng nhập",
		UnsupportedFileType:  "Chỉ hỗ trợ file PDF, PNG, JPG, JPEG",
		FileMissing:          "File không tồn tại",

		AppWelcome:        "Chào mừng đến với ocrdesk (gõ 'help' để xem lệnh)",
		WelcomeUser:       "Xin chào, %s!",
		LoggedInAs:        "Đã đăng nhập với tên %s",
		LoggedOut:         "Đã đăng xuất",
		SessionValidUntil: "Phiên đăng nhập có hiệu lực đến %s",
		Uploading:         "Đang tải lên... %d%%",
		SavedTo:           "Đã lưu vào %s",
		ReadyForNewFile:   "Sẵn sàng cho file mới",
		ConfirmDelete:     "Xóa %s?",
		DeleteCancelled:   "Đã hủy",
		FileDeleted:       "Đã xóa %s",
	},
}

// reasons maps the service's machine-readable failure strings to keys.
// Lookup is case-insensitive.
var reasons = map[string]Key{
	"incorrect username or password":      BadCredentials,
	"username already registered":         UsernameTaken,
	"email already registered":            EmailTaken,
	"incorrect old password":              WrongOldPassword,
	"user not found":                      UserNotFound,
	"invalid or expired reset code":       InvalidResetCode,
	"could not validate credentials":      InvalidToken,
	"chỉ hỗ trợ file pdf, png, jpg, jpeg": UnsupportedFileType,
	"file không tồn tại":                  FileMissing,
	"file not found":                      FileMissing,
}

// Catalog resolves keys for one locale, falling back to English.
type Catalog struct {
	locale Locale
}

func New(locale Locale) *Catalog {
	if _, ok := texts[locale]; !ok {
		locale = English
	}
	return &Catalog{locale: locale}
}

func (c *Catalog) Locale() Locale { return c.locale }

// Text returns the message for key, formatted with args when given.
// Unknown keys render as the key itself.
func (c *Catalog) Text(key Key, args ...any) string {
	s, ok := texts[c.locale][key]
	if !ok {
		s, ok = texts[English][key]
	}
	if !ok {
		s = string(key)
	}
	if len(args) > 0 {
		return fmt.Sprintf(s, args...)
	}
	return s
}

// Reason translates a known service reason. ok is false for reasons
// outside the table.
func (c *Catalog) Reason(reason string) (string, bool) {
	key, ok := reasons[strings.ToLower(strings.TrimSpace(reason))]
	if !ok {
		return "", false
	}
	return c.Text(key), true
}
