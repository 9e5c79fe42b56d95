package pgrepo

import (
	"context"

	"github.com/avkozlov/edumarket/internal/domain"
	"github.com/avkozlov/edumarket/pkg/uow"
)

// CourseRepository - read-only срез каталога курсов. CRUD курсов живет в другой
// подсистеме, ядру платежей нужны только цена, флаг продажи и список файлов.
type CourseRepository struct {
	db uow.DBTX
}

func NewCourseRepository(db uow.DBTX) *CourseRepository {
	return &CourseRepository{db: db}
}

const courseColumns = `id, created_at, updated_at, teacher_id, title, price::text, currency,
	for_sale, session_starts_at`

func (r *CourseRepository) FindByID(ctx context.Context, id int64) (*domain.Course, error) {
	row := r.db.QueryRow(ctx, `SELECT `+courseColumns+` FROM courses WHERE id = $1`, id)
	course, err := scanCourse(row)
	if err != nil {
		return nil, convertErr(err, "finding course %d", id)
	}

	files, filesErr := r.filesByCourseID(ctx, id)
	if filesErr != nil {
		return nil, filesErr
	}
	course.Files = files
	return course, nil
}

// FindManyByIDs возвращает курсы по списку id; отсутствующие id просто не попадают в результат.
func (r *CourseRepository) FindManyByIDs(ctx context.Context, ids []int64) ([]domain.Course, error) {
	rows, err := r.db.Query(ctx, `SELECT `+courseColumns+` FROM courses WHERE id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, convertErr(err, "finding courses")
	}
	defer rows.Close()

	var courses []domain.Course
	for rows.Next() {
		course, scanErr := scanCourse(rows)
		if scanErr != nil {
			return nil, convertErr(scanErr, "finding courses")
		}
		courses = append(courses, *course)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, convertErr(rowsErr, "finding courses")
	}

	for i := range courses {
		files, filesErr := r.filesByCourseID(ctx, courses[i].ID)
		if filesErr != nil {
			return nil, filesErr
		}
		courses[i].Files = files
	}
	return courses, nil
}

func (r *CourseRepository) filesByCourseID(ctx context.Context, courseID int64) ([]domain.CourseFile, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, course_id, name, file_type, url FROM course_files WHERE course_id = $1 ORDER BY id`,
		courseID,
	)
	if err != nil {
		return nil, convertErr(err, "finding files of course %d", courseID)
	}
	defer rows.Close()

	var files []domain.CourseFile
	for rows.Next() {
		var file domain.CourseFile
		if scanErr := rows.Scan(&file.ID, &file.CourseID, &file.Name, &file.FileType, &file.URL); scanErr != nil {
			return nil, convertErr(scanErr, "finding files of course %d", courseID)
		}
		files = append(files, file)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, convertErr(rowsErr, "finding files of course %d", courseID)
	}
	return files, nil
}

func scanCourse(row rowScanner) (*domain.Course, error) {
	var course domain.Course
	var rawPrice string
	err := row.Scan(
		&course.ID,
		&course.CreatedAt,
		&course.UpdatedAt,
		&course.TeacherID,
		&course.Title,
		&rawPrice,
		&course.Currency,
		&course.ForSale,
		&course.SessionStartsAt,
	)
	if err != nil {
		return nil, err
	}
	price, parseErr := parseDecimal(rawPrice)
	if parseErr != nil {
		return nil, parseErr
	}
	course.Price = price
	return &course, nil
}
