package fluidgen

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"reflect"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
)

var validate = validator.New()

// newDecoder returns a schema decoder reading field names from tag.
func newDecoder(tag string) *schema.Decoder {
	d := schema.NewDecoder()
	d.SetAliasTag(tag)
	d.IgnoreUnknownKeys(true)
	return d
}

var (
	pathDecoder   = newDecoder("path")
	queryDecoder  = newDecoder("query")
	headerDecoder = newDecoder("header")
	cookieDecoder = newDecoder("cookie")
	formDecoder   = newDecoder("form")
)

const maxMultipartMemory = 32 << 20

var (
	fileHeaderType  = reflect.TypeFor[*multipart.FileHeader]()
	fileHeadersType = reflect.TypeFor[[]*multipart.FileHeader]()
)

// decodeRequest builds a request value of type t from r. It returns the zero
// reflect.Value when t is not a struct or pointer to struct.
func (a *App) decodeRequest(r *http.Request, t reflect.Type, dep *Dependant, doValidate bool) (reflect.Value, *BackgroundTasks, error) {
	if t == nil {
		return reflect.Value{}, nil, nil
	}
	st := t
	if st.Kind() == reflect.Pointer {
		st = st.Elem()
	}
	if st.Kind() != reflect.Struct {
		return reflect.Zero(t), nil, nil
	}

	ptr := reflect.New(st)
	sv := ptr.Elem()
	flat := dep.Flat()

	pathValues := url.Values{}
	for _, p := range flat.PathParams {
		pathValues.Set(p.Name, r.PathValue(p.Name))
	}
	cookieValues := url.Values{}
	for _, c := range r.Cookies() {
		cookieValues.Add(c.Name, c.Value)
	}

	steps := []struct {
		dec    *schema.Decoder
		params []Param
		values url.Values
		label  string
	}{
		{pathDecoder, flat.PathParams, pathValues, "path"},
		{queryDecoder, flat.QueryParams, r.URL.Query(), "query"},
		{headerDecoder, flat.HeaderParams, url.Values(r.Header.Clone()), "headers"},
		{cookieDecoder, flat.CookieParams, cookieValues, "cookies"},
	}
	for _, step := range steps {
		if len(step.params) == 0 {
			continue
		}
		applyDefaults(step.values, step.params)
		if err := step.dec.Decode(ptr.Interface(), step.values); err != nil {
			return reflect.Value{}, nil, Errorf(CodeInvalidArgument, "failed to decode %s: %v", step.label, err)
		}
	}

	if err := a.decodeBody(r, ptr, flat.BodyParams); err != nil {
		return reflect.Value{}, nil, err
	}

	for _, p := range flat.SecurityParams {
		scheme, ok := a.Scheme(p.Scheme)
		if !ok {
			return reflect.Value{}, nil, errors.Newf("security scheme %q is not registered", p.Scheme)
		}
		cred := scheme.Credential(r)
		if cred == "" {
			return reflect.Value{}, nil, NewError(CodeUnauthenticated, "not authenticated")
		}
		if f := sv.FieldByIndex(p.Index); f.Kind() == reflect.String {
			f.SetString(cred)
		}
	}

	var tasks *BackgroundTasks
	for _, p := range flat.Hidden {
		f := sv.FieldByIndex(p.Index)
		switch p.Source {
		case SourceRequest:
			f.Set(reflect.ValueOf(r))
		case SourceBackground:
			if tasks == nil {
				tasks = &BackgroundTasks{}
			}
			f.Set(reflect.ValueOf(tasks))
		case SourceInject:
			if v, ok := a.provided(f.Type()); ok {
				f.Set(v)
			}
		}
	}

	if doValidate {
		if err := validate.Struct(ptr.Interface()); err != nil {
			var invalid *validator.InvalidValidationError
			if !errors.As(err, &invalid) {
				return reflect.Value{}, nil, err
			}
		}
	}

	if t.Kind() == reflect.Pointer {
		return ptr, tasks, nil
	}
	return sv, tasks, nil
}

// applyDefaults fills absent keys from `default` tags.
func applyDefaults(values url.Values, params []Param) {
	for _, p := range params {
		def, ok := p.Field.Tag.Lookup("default")
		if !ok || values.Has(p.Name) {
			continue
		}
		if p.Field.Type.Kind() == reflect.Slice {
			values[p.Name] = strings.Split(def, ",")
		} else {
			values.Set(p.Name, def)
		}
	}
}

func (a *App) decodeBody(r *http.Request, ptr reflect.Value, params []Param) error {
	if len(params) == 0 || r.Body == nil {
		return nil
	}
	sv := ptr.Elem()

	multipartMode := false
	for _, p := range params {
		if p.Source == SourceForm || p.Source == SourceFile {
			multipartMode = true
			break
		}
	}

	if multipartMode {
		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return Errorf(CodeInvalidArgument, "failed to parse form: %v", err)
		}
		formValues := url.Values{}
		var formParams []Param
		for _, p := range params {
			if p.Source == SourceForm {
				formParams = append(formParams, p)
				if vs, ok := r.PostForm[p.Name]; ok {
					formValues[p.Name] = vs
				}
			}
		}
		applyDefaults(formValues, formParams)
		if len(formParams) > 0 {
			if err := formDecoder.Decode(ptr.Interface(), formValues); err != nil {
				return Errorf(CodeInvalidArgument, "failed to decode form: %v", err)
			}
		}
		for _, p := range params {
			f := sv.FieldByIndex(p.Index)
			switch p.Source {
			case SourceFile:
				if r.MultipartForm == nil {
					continue
				}
				headers := r.MultipartForm.File[p.Name]
				switch {
				case len(headers) == 0:
				case f.Type() == fileHeaderType:
					f.Set(reflect.ValueOf(headers[0]))
				case f.Type() == fileHeadersType:
					f.Set(reflect.ValueOf(headers))
				}
			case SourceJSON, SourceBody:
				raw := r.PostFormValue(p.Name)
				if raw == "" {
					continue
				}
				if err := json.Unmarshal([]byte(raw), f.Addr().Interface()); err != nil {
					return Errorf(CodeInvalidArgument, "failed to decode %s: %v", p.Name, err)
				}
			}
		}
		return nil
	}

	var body io.Reader = r.Body
	if a.maxRequestBodySize > 0 {
		body = io.LimitReader(r.Body, a.maxRequestBodySize+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return Errorf(CodeInvalidArgument, "failed to read body: %v", err)
	}
	if a.maxRequestBodySize > 0 && int64(len(data)) > a.maxRequestBodySize {
		return Errorf(CodeInvalidArgument, "request body exceeds %d bytes", a.maxRequestBodySize)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}

	// A single body param is the whole body; several are keyed by name.
	if len(params) == 1 {
		f := sv.FieldByIndex(params[0].Index)
		if err := json.Unmarshal(data, f.Addr().Interface()); err != nil {
			return Errorf(CodeInvalidArgument, "failed to decode body: %v", err)
		}
		return nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Errorf(CodeInvalidArgument, "failed to decode body: %v", err)
	}
	for _, p := range params {
		raw, ok := fields[p.Name]
		if !ok {
			continue
		}
		f := sv.FieldByIndex(p.Index)
		if err := json.Unmarshal(raw, f.Addr().Interface()); err != nil {
			return Errorf(CodeInvalidArgument, "failed to decode %s: %v", p.Name, err)
		}
	}
	return nil
}

func (a *App) provided(t reflect.Type) (reflect.Value, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, v := range a.providers {
		if v.IsValid() && v.Type().AssignableTo(t) {
			return v, true
		}
	}
	return reflect.Value{}, false
}
