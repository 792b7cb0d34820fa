package client

import (
	"crypto/md5" //nolint:gosec
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// SignField имя поля подписи в теле запроса.
const SignField = "sign"

const merchantIDField = "id"

// Strategy вариант канонизации тела перед подписью.
//   - KeepZero: false - отбрасываются все "ложные" значения (nil, false, числовой ноль, "", "0", пустые коллекции);
//     true - отбрасываются только nil и пустая строка.
//   - PlusAsSpace: при декодировании строки запроса '+' превращается в пробел (true) или остается '+' (false).
type Strategy struct {
	KeepZero    bool
	PlusAsSpace bool
}

func (s Strategy) String() string {
	return fmt.Sprintf("keepZero=%t,plusAsSpace=%t", s.KeepZero, s.PlusAsSpace)
}

// Strategies фиксированный порядок перебора стратегий подписи.
var Strategies = [4]Strategy{
	{KeepZero: false, PlusAsSpace: true},
	{KeepZero: true, PlusAsSpace: true},
	{KeepZero: false, PlusAsSpace: false},
	{KeepZero: true, PlusAsSpace: false},
}

// Signer подписывает тела запросов к шлюзу: MD5 от отсортированной строки запроса с дописанным токеном.
type Signer struct {
	merchantID string
	token      string
}

func NewSigner(merchantID, token string) Signer {
	return Signer{
		merchantID: strings.TrimSpace(merchantID),
		token:      strings.TrimSpace(token),
	}
}

// Sign возвращает тело запроса (отфильтрованные поля, id мерчанта и подпись) и саму подпись.
// Функция чистая: одинаковые входные данные дают одинаковую подпись.
func (s Signer) Sign(payload map[string]any, st Strategy) (map[string]string, string) {
	filtered := s.filter(payload, st.KeepZero)
	sign := s.digest(CanonicalString(filtered, st.PlusAsSpace))

	body := make(map[string]string, len(filtered)+1)
	for k, v := range filtered {
		body[k] = v
	}
	body[SignField] = sign
	return body, sign
}

// Verify проверяет подпись входящего тела, перебирая все стратегии. Поле sign в подпись не входит.
func (s Signer) Verify(form map[string]string) bool {
	got, ok := form[SignField]
	if !ok || got == "" {
		return false
	}
	payload := make(map[string]any, len(form))
	for k, v := range form {
		if k == SignField {
			continue
		}
		payload[k] = v
	}
	for _, st := range Strategies {
		_, want := s.Sign(payload, st)
		if subtle.ConstantTimeCompare([]byte(strings.ToUpper(got)), []byte(want)) == 1 {
			return true
		}
	}
	return false
}

// filter подставляет id мерчанта и отбрасывает поля согласно стратегии. Значения приводятся к строкам.
func (s Signer) filter(payload map[string]any, keepZero bool) map[string]string {
	merged := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		merged[k] = v
	}
	merged[merchantIDField] = s.merchantID

	filtered := make(map[string]string, len(merged))
	for k, v := range merged {
		if keepZero {
			if v == nil {
				continue
			}
			if str, isStr := v.(string); isStr && str == "" {
				continue
			}
		} else if isFalsy(v) {
			continue
		}
		filtered[k] = stringify(v)
	}
	return filtered
}

func (s Signer) digest(canonical string) string {
	sum := md5.Sum([]byte(canonical + "&token=" + s.token)) //nolint:gosec
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// CanonicalString строит строку запроса из пар, отсортированных по ключу, и декодирует ее выбранным способом.
// Токен в результат не входит.
func CanonicalString(fields map[string]string, plusAsSpace bool) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = url.QueryEscape(k) + "=" + url.QueryEscape(fields[k])
	}
	query := strings.Join(pairs, "&")

	var (
		decoded string
		err     error
	)
	if plusAsSpace {
		decoded, err = url.QueryUnescape(query)
	} else {
		decoded, err = url.PathUnescape(query)
	}
	if err != nil {
		return query
	}
	return decoded
}

// isFalsy предикат отбрасывания поля при KeepZero=false.
func isFalsy(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case bool:
		return !val
	case string:
		return val == "" || val == "0"
	case json.Number:
		f, err := val.Float64()
		return err == nil && f == 0
	case decimal.Decimal:
		return val.IsZero()
	case *decimal.Decimal:
		return val == nil || val.IsZero()
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() { //nolint:exhaustive
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() == 0
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// stringify приводит значение поля к строке, в которой оно уходит в тело запроса.
func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case decimal.Decimal:
		return val.String()
	case fmt.Stringer:
		return val.String()
	}
	return fmt.Sprint(v)
}
