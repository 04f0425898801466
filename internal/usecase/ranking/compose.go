package ranking

import (
	"feed-ranker/internal/domain"
)

// homeTemplate — повторяющийся 12-слотовый шаблон домашней ленты.
// Чередование гарантирует разнообразие разделов: чистая сортировка
// по оценке вытеснила бы малочисленные разделы.
var homeTemplate = []domain.ContentKind{
	domain.KindLongVideo, domain.KindReel,
	domain.KindLongVideo, domain.KindReel,
	domain.KindLongVideo, domain.KindImage,
	domain.KindReel, domain.KindCommunity,
	domain.KindLongVideo, domain.KindReel,
	domain.KindLongVideo, domain.KindReel,
}

// backfillOrder — порядок добора при исчерпании шаблона.
var backfillOrder = []domain.ContentKind{
	domain.KindLongVideo, domain.KindReel, domain.KindImage, domain.KindCommunity,
}

// composeHome чередует кандидатов по шаблону. Очереди должны быть
// упорядочены от новых к старым; шаблон решает только чередование
// между разделами и никогда не переставляет элементы внутри раздела.
// Пустые слоты пропускаются без разрывов. Шаблон повторяется, пока
// страница не заполнена или очереди не опустели; остаток добирается
// в фиксированном порядке разделов.
func composeHome(queues map[domain.ContentKind][]domain.ScoredCandidate, pageSize int) []domain.ScoredCandidate {
	out := make([]domain.ScoredCandidate, 0, pageSize)
	for len(out) < pageSize {
		progressed := false
		for _, kind := range homeTemplate {
			if len(out) >= pageSize {
				break
			}
			queue := queues[kind]
			if len(queue) == 0 {
				continue
			}
			out = append(out, queue[0])
			queues[kind] = queue[1:]
			progressed = true
		}
		if !progressed {
			break
		}
	}
	for _, kind := range backfillOrder {
		for len(out) < pageSize && len(queues[kind]) > 0 {
			out = append(out, queues[kind][0])
			queues[kind] = queues[kind][1:]
		}
	}
	return out
}

// partitionByKind раскладывает кандидатов по очередям, сохраняя
// относительный порядок внутри каждого раздела.
func partitionByKind(items []domain.ScoredCandidate) map[domain.ContentKind][]domain.ScoredCandidate {
	queues := make(map[domain.ContentKind][]domain.ScoredCandidate, 4)
	for _, item := range items {
		queues[item.Item.Kind] = append(queues[item.Item.Kind], item)
	}
	return queues
}
