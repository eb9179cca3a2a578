package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/zhouzirui/coursehub/internal/auth"
	"github.com/zhouzirui/coursehub/internal/model/course"
)

// ListCourses 返回已发布的课程目录
func (c *Client) ListCourses(ctx context.Context) ([]course.Course, error) {
	var courses []course.Course
	if err := c.get(ctx, "/courses/", nil, &courses); err != nil {
		return nil, err
	}
	return courses, nil
}

// GetCourse 返回单个课程及其模块和视频
func (c *Client) GetCourse(ctx context.Context, id int) (course.Course, error) {
	var out course.Course
	if err := c.get(ctx, fmt.Sprintf("/courses/%d", id), nil, &out); err != nil {
		return course.Course{}, err
	}
	return out, nil
}

// Enroll 为调用者选修课程 id。重复选课同样成功，
// 返回结果的 AlreadyEnrolled 为 true。
func (c *Client) Enroll(ctx context.Context, creds auth.Credentials, id int) (course.EnrollResult, error) {
	var out course.EnrollResult
	if err := c.send(ctx, http.MethodPost, fmt.Sprintf("/enrollments/%d", id), &creds, nil, &out); err != nil {
		return course.EnrollResult{}, err
	}
	return out, nil
}

// MyEnrollments 列出调用者已选修的课程
func (c *Client) MyEnrollments(ctx context.Context, creds auth.Credentials) ([]course.Course, error) {
	var courses []course.Course
	if err := c.get(ctx, "/enrollments/my-courses", &creds, &courses); err != nil {
		return nil, err
	}
	return courses, nil
}

// Health 查询服务根路径，不在 API 前缀下
func (c *Client) Health(ctx context.Context) (course.Health, error) {
	var out course.Health
	req := request{method: http.MethodGet, url: c.rootURL + "/health"}
	if err := c.do(ctx, req, &out); err != nil {
		return course.Health{}, err
	}
	return out, nil
}
