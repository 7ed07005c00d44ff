package mysql

// reviewColumns is the SELECT list scanned by scanReview, in order.
var reviewColumns = []string{
	"id", "property_id", "location_ref", "author", "rating", "content", "created_at",
	"status", "reply_text", "replied_at",
	"category", "sentiment", "actionable", "summary", "analyzed_at",
}

const insertReviewsPrefix = "INSERT INTO reviews\n  (id, property_id, location_ref, author, rating, content, created_at, status, reply_text, replied_at)\nVALUES "

// Sync owns the platform fields. Reply metadata keeps the local value when the
// platform has none; AI columns are never touched here.
const insertReviewsOnDup = " ON DUPLICATE KEY UPDATE\n" +
	"  property_id  = VALUES(property_id),\n" +
	"  location_ref = VALUES(location_ref),\n" +
	"  author       = VALUES(author),\n" +
	"  rating       = VALUES(rating),\n" +
	"  content      = VALUES(content),\n" +
	"  created_at   = VALUES(created_at),\n" +
	"  status       = VALUES(status),\n" +
	"  reply_text   = COALESCE(VALUES(reply_text), reviews.reply_text),\n" +
	"  replied_at   = COALESCE(VALUES(replied_at), reviews.replied_at)\n"

const markRepliedSQL = `
UPDATE reviews
SET status = 'replied', reply_text = ?, replied_at = ?
WHERE id = ?
`

const saveAnalysisSQL = `
UPDATE reviews
SET category = ?, sentiment = ?, actionable = ?, summary = ?, analyzed_at = ?
WHERE id = ?
`

const clearAnalysisSQL = `
UPDATE reviews
SET category = NULL, sentiment = NULL, actionable = NULL, summary = NULL, analyzed_at = NULL
WHERE id = ?
`

const getUserSQL = `
SELECT id, name, email, role, assigned_properties
FROM users
WHERE id = ?
`

const insertSurveySQL = `
INSERT INTO surveys (id, property_id, resident_email, type, status, sent_at)
VALUES (?, ?, ?, ?, ?, ?)
`

const completeSurveySQL = `
UPDATE surveys
SET status = 'completed', rating = ?, feedback = ?, completed_at = ?
WHERE id = ?
`

const insertScheduleSQL = `
INSERT INTO report_schedules (id, email, frequency, property_id, status, created_by, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

const loadSettingSQL = "SELECT value FROM settings WHERE `key` = ?"

const saveSettingSQL = "INSERT INTO settings (`key`, value) VALUES (?, ?)\n" +
	"ON DUPLICATE KEY UPDATE value = VALUES(value), updated_at = CURRENT_TIMESTAMP"
