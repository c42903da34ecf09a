package node

import (
	"encoding/json"
	"errors"
	"strings"
)

// ExtractJSONObject 从模型输出中截取第一个完整的 JSON 对象或数组。
// 模型可能在 JSON 前后夹杂解释文本或 Markdown 代码围栏，
// 这里做容错截取，截不出来时原样返回交给调用方报错。
func ExtractJSONObject(s string) string {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return raw
	}

	raw = stripCodeFence(raw)

	objStart := strings.Index(raw, "{")
	arrStart := strings.Index(raw, "[")
	start, end := -1, -1
	switch {
	case objStart >= 0 && (arrStart < 0 || objStart < arrStart):
		start, end = objStart, strings.LastIndex(raw, "}")
	case arrStart >= 0:
		start, end = arrStart, strings.LastIndex(raw, "]")
	}
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

// stripCodeFence 去掉 ```json ... ``` 这类围栏
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	body := strings.TrimPrefix(s, "```")
	if i := strings.Index(body, "\n"); i >= 0 {
		body = body[i+1:]
	}
	if i := strings.LastIndex(body, "```"); i >= 0 {
		body = body[:i]
	}
	return strings.TrimSpace(body)
}

// DecodeStrict 将模型输出解析为目标结构，禁止未知字段，
// 并拒绝 JSON 之后还有残余内容的输出。
// 解析失败由调用方按无相关内容或校验失败处理，不做部分解析。
func DecodeStrict(raw string, v any) error {
	payload := ExtractJSONObject(raw)
	if payload == "" {
		return errors.New("empty model output")
	}
	dec := json.NewDecoder(strings.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("trailing content after JSON value")
	}
	return nil
}
