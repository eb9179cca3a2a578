package api

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/zhouzirui/coursehub/internal/auth"
	"github.com/zhouzirui/coursehub/internal/model/course"
)

// MyCourses 列出调用者讲授的课程
func (c *Client) MyCourses(ctx context.Context, creds auth.Credentials) ([]course.Course, error) {
	var courses []course.Course
	if err := c.get(ctx, "/courses/my-courses", &creds, &courses); err != nil {
		return nil, err
	}
	return courses, nil
}

// CreateCourse 创建草稿或已发布的课程
func (c *Client) CreateCourse(ctx context.Context, creds auth.Credentials, form course.CourseCreate) (course.Course, error) {
	if err := course.Validate(form); err != nil {
		return course.Course{}, err
	}
	var out course.Course
	if err := c.send(ctx, http.MethodPost, "/courses/", &creds, form, &out); err != nil {
		return course.Course{}, err
	}
	return out, nil
}

// UpdateCourse 更新 form 中设置的字段并返回更新后的课程
func (c *Client) UpdateCourse(ctx context.Context, creds auth.Credentials, id int, form course.CourseUpdate) (course.Course, error) {
	if form.Empty() {
		return course.Course{}, ErrEmptyUpdate
	}
	if err := course.Validate(form); err != nil {
		return course.Course{}, err
	}
	var out course.Course
	if err := c.send(ctx, http.MethodPatch, fmt.Sprintf("/courses/%d", id), &creds, form, &out); err != nil {
		return course.Course{}, err
	}
	return out, nil
}

// CreateModule 向课程 courseID 添加模块
func (c *Client) CreateModule(ctx context.Context, creds auth.Credentials, courseID int, form course.ModuleCreate) (course.Module, error) {
	if err := course.Validate(form); err != nil {
		return course.Module{}, err
	}
	var out course.Module
	if err := c.send(ctx, http.MethodPost, fmt.Sprintf("/courses/%d/modules", courseID), &creds, form, &out); err != nil {
		return course.Module{}, err
	}
	return out, nil
}

// UploadVideo 以 multipart 表单将 upload.Body 流式上传到模块 moduleID
func (c *Client) UploadVideo(ctx context.Context, creds auth.Credentials, moduleID int, upload course.VideoUpload) (course.Video, error) {
	if err := course.Validate(upload); err != nil {
		return course.Video{}, err
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	contentType := mw.FormDataContentType()
	go func() {
		pw.CloseWithError(writeUpload(mw, upload))
	}()
	// 请求在读完请求体前失败时解除写端阻塞
	defer pr.Close()

	req := request{
		method:      http.MethodPost,
		url:         c.baseURL + fmt.Sprintf("/courses/%d/videos", moduleID),
		creds:       &creds,
		body:        pr,
		contentType: contentType,
	}
	var out course.Video
	if err := c.do(ctx, req, &out); err != nil {
		return course.Video{}, err
	}
	return out, nil
}

func writeUpload(mw *multipart.Writer, upload course.VideoUpload) error {
	if err := mw.WriteField("title", upload.Title); err != nil {
		return err
	}
	part, err := mw.CreateFormFile("file", upload.FileName)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, upload.Body); err != nil {
		return fmt.Errorf("read upload: %w", err)
	}
	return mw.Close()
}
